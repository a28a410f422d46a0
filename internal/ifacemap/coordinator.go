package ifacemap

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/netmanager/netconsole/internal/backend"
)

// Phase is where the coordinator is in its load/save cycle
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoading
	PhaseReady
	PhaseSaving
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseLoading:
		return "loading"
	case PhaseReady:
		return "ready"
	case PhaseSaving:
		return "saving"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

type interfacesResponse struct {
	MemberMap map[string]string `json:"member_map"`
}

// assignment is the body of POST /api/iface-map
type assignment struct {
	WanIface string `json:"WanIface"`
	Nic      string `json:"Nic"`
}

// BatchError reports a Save where at least one write failed. Writes listed
// in Saved reached the backend and were not rolled back.
type BatchError struct {
	Saved  []string
	Failed map[string]error
}

func (e *BatchError) Error() string {
	failed := make([]string, 0, len(e.Failed))
	for _, wan := range sortedKeys(e.Failed) {
		failed = append(failed, fmt.Sprintf("%s: %s", wan, strings.TrimSpace(e.Failed[wan].Error())))
	}

	saved := "none"
	if len(e.Saved) > 0 {
		saved = strings.Join(e.Saved, ", ")
	}
	return fmt.Sprintf("saved %d of %d mappings (saved: %s; failed: %s)",
		len(e.Saved), len(e.Saved)+len(e.Failed), saved, strings.Join(failed, "; "))
}

func (e *BatchError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failed))
	for _, wan := range sortedKeys(e.Failed) {
		errs = append(errs, e.Failed[wan])
	}
	return errs
}

// Coordinator loads the mwan member map and pushes the operator's pending
// WAN to NIC assignments to the backend.
type Coordinator struct {
	client *backend.Client
	mu     sync.Mutex

	phase   Phase
	loaded  bool
	members map[string]string
	mapping map[string]string
	lastErr error
}

// NewCoordinator creates an idle coordinator with an empty mapping
func NewCoordinator(client *backend.Client) *Coordinator {
	return &Coordinator{
		client:  client,
		members: make(map[string]string),
		mapping: make(map[string]string),
	}
}

// Load fetches the member map and replaces the current one. Pending
// mappings are kept.
func (c *Coordinator) Load() error {
	c.enter(PhaseLoading)

	res, err := backend.Fetch[interfacesResponse](c.client, backend.PathInterfaces)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastErr = err
	if err != nil {
		c.settle()
		return err
	}

	c.members = make(map[string]string, len(res.MemberMap))
	for wan, member := range res.MemberMap {
		c.members[wan] = member
	}
	c.loaded = true
	c.settle()
	return nil
}

// SetMapping records nic for wan. The wan does not have to be a known
// member.
func (c *Coordinator) SetMapping(wan, nic string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mapping[wan] = nic
}

// Save submits every pending mapping concurrently and waits for all of
// them. If any write fails a *BatchError is returned; writes that
// succeeded stay applied. The pending mapping is kept either way.
func (c *Coordinator) Save() error {
	c.mu.Lock()
	pending := make(map[string]string, len(c.mapping))
	for wan, nic := range c.mapping {
		pending[wan] = nic
	}
	c.phase = PhaseSaving
	c.mu.Unlock()

	type result struct {
		wan string
		err error
	}

	results := make(chan result, len(pending))
	var wg sync.WaitGroup
	for wan, nic := range pending {
		wg.Add(1)
		go func(wan, nic string) {
			defer wg.Done()
			_, err := backend.Submit[backend.Ack](c.client, backend.PathIfaceMap, assignment{WanIface: wan, Nic: nic})
			results <- result{wan: wan, err: err}
		}(wan, nic)
	}
	wg.Wait()
	close(results)

	batch := &BatchError{Failed: make(map[string]error)}
	for r := range results {
		if r.err != nil {
			batch.Failed[r.wan] = r.err
			continue
		}
		batch.Saved = append(batch.Saved, r.wan)
	}
	sort.Strings(batch.Saved)

	var err error
	if len(batch.Failed) > 0 {
		err = batch
	}

	c.mu.Lock()
	c.lastErr = err
	c.settle()
	c.mu.Unlock()

	return err
}

// Saved returns the WAN to NIC map currently persisted by the backend
func (c *Coordinator) Saved() (map[string]string, error) {
	return backend.Fetch[map[string]string](c.client, backend.PathIfaceMap)
}

// Members returns a copy of the last loaded member map
func (c *Coordinator) Members() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return copyMap(c.members)
}

// WANs returns the member WAN ids in sorted order
func (c *Coordinator) WANs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return sortedKeys(c.members)
}

// Mapping returns a copy of the pending WAN to NIC mapping
func (c *Coordinator) Mapping() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return copyMap(c.mapping)
}

// Phase returns the current phase
func (c *Coordinator) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// LastErr returns the error of the most recent Load or Save, if any
func (c *Coordinator) LastErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

func (c *Coordinator) enter(p Phase) {
	c.mu.Lock()
	c.phase = p
	c.mu.Unlock()
}

// settle returns to the last stable phase. Caller holds c.mu.
func (c *Coordinator) settle() {
	if c.loaded {
		c.phase = PhaseReady
	} else {
		c.phase = PhaseIdle
	}
}

func copyMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
