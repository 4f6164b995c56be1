package grib

// Observe registers observer to be told when the key observed changes.
func (h *Handle) Observe(observer Accessor, observed string) {
	if observed == "" {
		return
	}
	for _, o := range h.observers[observed] {
		if o == observer {
			return
		}
	}
	h.observers[observed] = append(h.observers[observed], observer)
}

// unobserve drops a from every observer list, so a removed accessor is
// neither notified nor kept alive by the keys it used to watch.
func (h *Handle) unobserve(a Accessor) {
	for name, list := range h.observers {
		kept := list[:0]
		for _, o := range list {
			if o != a {
				kept = append(kept, o)
			}
		}
		if len(kept) == 0 {
			delete(h.observers, name)
		} else {
			h.observers[name] = kept
		}
	}
}

// ObserveArguments registers observer on every key args read.
func (h *Handle) ObserveArguments(observer Accessor, args Arguments) {
	for _, name := range args.References() {
		h.Observe(observer, name)
	}
}

// NotifyChange tells every observer of a's names that a changed. Memoised
// observers are invalidated first, then the observer's creating action may
// re-pack it. The observer list is taken before anyone runs, so observers
// added while notifying wait for the next change.
func (h *Handle) NotifyChange(a Accessor) error {
	var pending []Accessor
	seen := make(map[Accessor]bool)
	for _, name := range a.Core().AllNames {
		for _, o := range h.observers[name] {
			if o != a && !seen[o] {
				seen[o] = true
				pending = append(pending, o)
			}
		}
	}

	for _, o := range pending {
		if inv, ok := o.(Invalidator); ok {
			inv.Invalidate()
		}
		if c := o.Core().Creator; c != nil {
			if err := c.NotifyChange(o, a); err != nil {
				return err
			}
		}
	}
	return nil
}
