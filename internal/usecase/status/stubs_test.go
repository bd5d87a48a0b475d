package status_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"

	"chanwatch/internal/domain/entity"
)

/*────────────────────  インメモリスタブ  ────────────────────*/

// stubRepo is a mutex guarded in-memory ChannelRepository.
type stubRepo struct {
	mu      sync.Mutex
	data    map[int64]*entity.Channel
	nextID  int64
	updates atomic.Int32
	err     error // 強制エラー注入用
}

func newStubRepo() *stubRepo {
	return &stubRepo{data: map[int64]*entity.Channel{}, nextID: 1}
}

func (s *stubRepo) Get(_ context.Context, id int64) (*entity.Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data[id].Clone(), s.err
}

func (s *stubRepo) GetByReference(_ context.Context, ref string) (*entity.Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.data {
		if ch.Reference == ref {
			return ch.Clone(), nil
		}
	}
	return nil, s.err
}

func (s *stubRepo) List(_ context.Context) ([]*entity.Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	out := make([]*entity.Channel, 0, len(s.data))
	for _, ch := range s.data {
		out = append(out, ch.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *stubRepo) Create(_ context.Context, ch *entity.Channel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	for _, v := range s.data {
		if v.Reference == ch.Reference {
			return entity.ErrDuplicate
		}
	}
	ch.ID = s.nextID
	s.nextID++
	if ch.Status == "" {
		ch.Status = entity.StatusPending
	}
	s.data[ch.ID] = ch.Clone()
	return nil
}

func (s *stubRepo) Update(_ context.Context, ch *entity.Channel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates.Add(1)
	if s.err != nil {
		return s.err
	}
	if _, ok := s.data[ch.ID]; !ok {
		return entity.ErrNotFound
	}
	s.data[ch.ID] = ch.Clone()
	return nil
}

func (s *stubRepo) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
	return s.err
}

func (s *stubRepo) CountByStatus(_ context.Context) (map[entity.ChannelStatus]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[entity.ChannelStatus]int{}
	for _, ch := range s.data {
		out[ch.Status]++
	}
	return out, s.err
}

func (s *stubRepo) add(ref string, status entity.ChannelStatus) *entity.Channel {
	ch := &entity.Channel{Reference: ref, Status: status}
	if err := s.Create(context.Background(), ch); err != nil {
		panic(err)
	}
	return ch
}

// stubLookup serves canned answers and counts calls per method.
type stubLookup struct {
	mu         sync.Mutex
	configured bool
	handles    map[string]string
	usernames  map[string]string
	uploads    map[string]string
	items      map[string][]string
	videos     map[string]*entity.VideoDetails
	videoErrs  map[string]error
	calls      map[string]int
	videoOrder []string
}

var errStub = errors.New("stub: not found")

func newStubLookup() *stubLookup {
	return &stubLookup{
		configured: true,
		handles:    map[string]string{},
		usernames:  map[string]string{},
		uploads:    map[string]string{},
		items:      map[string][]string{},
		videos:     map[string]*entity.VideoDetails{},
		videoErrs:  map[string]error{},
		calls:      map[string]int{},
	}
}

func (l *stubLookup) count(method string) {
	l.mu.Lock()
	l.calls[method]++
	l.mu.Unlock()
}

func (l *stubLookup) Calls(method string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls[method]
}

func (l *stubLookup) Total() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, c := range l.calls {
		n += c
	}
	return n
}

func (l *stubLookup) Configured() bool { return l.configured }

func (l *stubLookup) ChannelIDByHandle(_ context.Context, handle string) (string, error) {
	l.count("handle")
	if id, ok := l.handles[handle]; ok {
		return id, nil
	}
	return "", errStub
}

func (l *stubLookup) ChannelIDByUsername(_ context.Context, name string) (string, error) {
	l.count("username")
	if id, ok := l.usernames[name]; ok {
		return id, nil
	}
	return "", errStub
}

func (l *stubLookup) UploadsPlaylistID(_ context.Context, channelID string) (string, error) {
	l.count("uploads")
	if id, ok := l.uploads[channelID]; ok {
		return id, nil
	}
	return "", errStub
}

func (l *stubLookup) PlaylistItemIDs(_ context.Context, playlistID string, max int64) ([]string, error) {
	l.count("items")
	ids, ok := l.items[playlistID]
	if !ok {
		return nil, errStub
	}
	if int64(len(ids)) > max {
		ids = ids[:max]
	}
	return ids, nil
}

func (l *stubLookup) Video(_ context.Context, id string) (*entity.VideoDetails, error) {
	l.count("video")
	l.mu.Lock()
	l.videoOrder = append(l.videoOrder, id)
	l.mu.Unlock()
	if err := l.videoErrs[id]; err != nil {
		return nil, err
	}
	if v, ok := l.videos[id]; ok {
		return v, nil
	}
	return nil, errStub
}

// stubProber returns a fixed result per reference.
type stubProber struct {
	mu      sync.Mutex
	results map[string]entity.ProbeResult
	calls   int
	gate    chan struct{} // nil なら即時応答
}

func (p *stubProber) Probe(_ context.Context, ref string) entity.ProbeResult {
	p.mu.Lock()
	p.calls++
	gate := p.gate
	res, ok := p.results[ref]
	p.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if !ok {
		return entity.ProbeResult{Accessible: false, Error: "Channel not found (404)"}
	}
	return res
}

func (p *stubProber) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// stubFetcher returns a fixed publication per external id.
type stubFetcher struct {
	mu    sync.Mutex
	pubs  map[string]*entity.Publication
	calls []string
}

func (f *stubFetcher) Latest(_ context.Context, externalID string) *entity.Publication {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, externalID)
	if p, ok := f.pubs[externalID]; ok {
		cp := *p
		return &cp
	}
	return nil
}

// recordingNotifier collects status changes.
type recordingNotifier struct {
	mu      sync.Mutex
	changes []*entity.StatusChange
}

func (n *recordingNotifier) NotifyStatusChange(_ context.Context, c *entity.StatusChange) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.changes = append(n.changes, c)
	return nil
}

func strPtr(s string) *string { return &s }
