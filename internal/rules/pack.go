package rules

// Pack is a stateless, domain-scoped classifier. Evaluate must be a pure
// function over the inputs so many events can be classified concurrently.
type Pack interface {
	// Types lists the event types this pack handles, exact match.
	Types() []string
	// Evaluate returns advisories in declaration order. Missing or
	// non-numeric metric keys mean the rule does not apply; Evaluate
	// never fails.
	Evaluate(metrics map[string]any, labels map[string]string) []string
}

// Registry maps an event type to its pack. Built once at startup;
// lookups for unknown types resolve to a no-op pack so classification
// never has an error path.
type Registry struct {
	packs map[string]Pack
}

func NewRegistry(packs ...Pack) *Registry {
	r := &Registry{packs: map[string]Pack{}}
	for _, p := range packs {
		for _, t := range p.Types() {
			r.packs[t] = p
		}
	}
	return r
}

// DefaultRegistry wires every built-in pack.
func DefaultRegistry() *Registry {
	return NewRegistry(
		CPUPack{},
		MemoryPack{},
		DiskPack{},
		SystemNetPack{},
		NetworkHTTPPack{},
		NewErrorRatePack(),
		PaymentAPIPack{},
	)
}

// Lookup returns the pack for an event type, or a no-op pack.
func (r *Registry) Lookup(eventType string) Pack {
	if p, ok := r.packs[eventType]; ok {
		return p
	}
	return noopPack{}
}

type noopPack struct{}

func (noopPack) Types() []string { return nil }

func (noopPack) Evaluate(map[string]any, map[string]string) []string { return nil }

// dedup removes repeated advisories while preserving first-seen order.
func dedup(advisories []string) []string {
	seen := map[string]struct{}{}
	out := advisories[:0]
	for _, a := range advisories {
		if _, ok := seen[a]; ok {
			continue
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}
	return out
}
