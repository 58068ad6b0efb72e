package storage

import "log/slog"

// overflowHeaderBudget is how many header-equivalent bytes are reserved on
// an overflow page (it reuses the normal page header: the 2-byte count
// field as the chunk's payload length, the 4-byte successor field as the
// next-page link).
const overflowHeaderBudget = HeaderSize

// payloadBudget is the number of payload bytes an overflow page can hold.
func payloadBudget(pageSize int) int { return pageSize - overflowHeaderBudget }

// WriteOverflowChain stores data across the minimum number of OVERFLOW
// pages needed, linking each to the next via SetOverflowNext and writing
// each chunk's length into SetOverflowPayloadLen. It returns the id of the
// first page in the chain. On any write failure the already-allocated
// pages are left as-is (un-reclaimed, still flagged whatever AllocatePage
// zero-initialized them to) rather than cleaned up further, matching
// spec.md §7's documented partial-chain leak.
func WriteOverflowChain(pm *PageManager, data []byte) (uint64, error) {
	budget := payloadBudget(pm.PageSize())
	if budget <= 0 {
		return 0, ErrCorrupted
	}

	numPages := (len(data) + budget - 1) / budget
	if numPages == 0 {
		numPages = 1
	}

	ids := make([]uint64, numPages)
	for i := range ids {
		id, err := pm.AllocatePage()
		if err != nil {
			return 0, err
		}
		ids[i] = id
	}

	for i, id := range ids {
		start := i * budget
		end := start + budget
		if end > len(data) {
			end = len(data)
		}
		chunk := data[start:end]

		page, err := pm.ReadPage(id)
		if err != nil {
			return 0, err
		}
		InitPage(page.buf, id, FlagOverflow)
		next := uint32(0)
		if i+1 < len(ids) {
			next = uint32(ids[i+1])
		}
		page.SetOverflowNext(next)
		page.SetOverflowPayloadLen(len(chunk))
		copy(page.OverflowPayload(), chunk)
		if err := pm.WritePage(page); err != nil {
			return 0, err
		}
	}

	slog.Debug("storage.WriteOverflowChain", "head", ids[0], "pages", len(ids), "bytes", len(data))
	return ids[0], nil
}

// ReadOverflowChain walks the linked list starting at head until a
// successor of 0, detecting cycles via a visited set and capping total
// size defensively.
func ReadOverflowChain(pm *PageManager, head uint64) ([]byte, error) {
	var out []byte
	visited := make(map[uint64]bool)

	id := head
	for {
		if visited[id] {
			return nil, ErrOverflowCycle
		}
		visited[id] = true

		page, err := pm.ReadPage(id)
		if err != nil {
			return nil, err
		}
		if !page.IsOverflow() {
			return nil, ErrCorrupted
		}
		n := page.OverflowPayloadLen()
		if n < 0 || n > payloadBudget(pm.PageSize()) {
			return nil, ErrCorrupted
		}
		out = append(out, page.OverflowPayload()[:n]...)
		if len(out) > maxOverflowChainBytes {
			return nil, ErrOverflowTooBig
		}

		next := page.OverflowNext()
		if next == 0 {
			break
		}
		id = uint64(next)
	}
	return out, nil
}

// FreeOverflowChain marks every page in the chain FREELIST. No on-disk
// freelist index is maintained (spec.md glossary); this simply prevents a
// stale chain from being mistaken for a live one if its page id is reused
// for debugging/inspection purposes.
func FreeOverflowChain(pm *PageManager, head uint64) error {
	visited := make(map[uint64]bool)
	id := head
	for {
		if visited[id] {
			return ErrOverflowCycle
		}
		visited[id] = true

		page, err := pm.ReadPage(id)
		if err != nil {
			return err
		}
		next := page.OverflowNext()
		page.SetFlags(FlagFreelist)
		if err := pm.WritePage(page); err != nil {
			return err
		}
		if next == 0 {
			break
		}
		id = uint64(next)
	}
	return nil
}
