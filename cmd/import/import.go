package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"chanwatch/internal/domain/entity"
	"chanwatch/internal/usecase/channel"
)

// adder is the part of the channel service the import needs.
type adder interface {
	Add(ctx context.Context, reference string) (*entity.Channel, error)
}

// importFailure is a reference that could not be added.
type importFailure struct {
	Reference string `json:"reference"`
	Reason    string `json:"reason"`
}

// importResult lists what happened to every reference, in input order.
type importResult struct {
	Added   []string        `json:"added"`
	Present []string        `json:"already_present"`
	Failed  []importFailure `json:"failed"`
}

// importChannels adds every reference. Duplicates count as already present;
// other failures are collected and the import carries on, except when ctx
// ends, which stops it.
func importChannels(ctx context.Context, svc adder, refs []string) importResult {
	res := importResult{Added: []string{}, Present: []string{}, Failed: []importFailure{}}
	for _, ref := range refs {
		if err := ctx.Err(); err != nil {
			res.Failed = append(res.Failed, importFailure{Reference: ref, Reason: err.Error()})
			continue
		}
		_, err := svc.Add(ctx, ref)

		var valErr *entity.ValidationError
		switch {
		case err == nil:
			res.Added = append(res.Added, ref)
		case errors.Is(err, channel.ErrDuplicateChannel):
			res.Present = append(res.Present, ref)
		case errors.As(err, &valErr):
			res.Failed = append(res.Failed, importFailure{Reference: ref, Reason: valErr.Message})
		default:
			res.Failed = append(res.Failed, importFailure{Reference: ref, Reason: err.Error()})
		}
	}
	return res
}

func writeText(w io.Writer, res importResult) {
	_, _ = fmt.Fprintln(w, "📥 Importing YouTube channels...")
	_, _ = fmt.Fprintln(w)
	for _, ref := range res.Added {
		_, _ = fmt.Fprintf(w, "✅ Added: %s\n", ref)
	}
	for _, ref := range res.Present {
		_, _ = fmt.Fprintf(w, "⚠️  Already exists: %s\n", ref)
	}
	for _, f := range res.Failed {
		_, _ = fmt.Fprintf(w, "❌ Failed: %s (%s)\n", f.Reference, f.Reason)
	}
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintf(w, "Added %d, already present %d, failed %d\n", len(res.Added), len(res.Present), len(res.Failed))
}
