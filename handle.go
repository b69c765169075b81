package rowkv

// Handle is the control object a transaction body receives alongside its
// row snapshot. Its flags, together with whether the snapshot was
// mutated, decide what the transaction controller persists when the body
// returns.
type Handle struct {
	existed bool
	remove  bool
	confirm bool
}

func newHandle(existed bool) *Handle {
	return &Handle{existed: existed}
}

// Exists reports whether the row existed when the transaction started.
func (h *Handle) Exists() bool { return h.existed }

// Remove marks the row for removal on commit. It returns whether the row
// existed at the start of the transaction.
func (h *Handle) Remove() bool {
	h.remove = true
	return h.existed
}

// Confirm marks a non-existing row for creation on commit. It returns true
// iff the row did not already exist.
func (h *Handle) Confirm() bool {
	h.confirm = true
	return !h.existed
}

// Removed reports whether Remove was called.
func (h *Handle) Removed() bool { return h.remove }

// Confirmed reports whether Confirm was called.
func (h *Handle) Confirmed() bool { return h.confirm }
