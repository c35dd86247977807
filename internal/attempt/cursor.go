package attempt

import "sort"

// Cursor tracks the displayed question and the questions flagged for review.
// Moves outside [0, length) are ignored rather than wrapped or rejected.
type Cursor struct {
	index   int
	length  int
	flagged map[string]struct{}
}

func NewCursor(length int) *Cursor {
	if length < 0 {
		length = 0
	}
	return &Cursor{length: length, flagged: make(map[string]struct{})}
}

func (c *Cursor) Index() int {
	return c.index
}

func (c *Cursor) Len() int {
	return c.length
}

// Next advances one question; it reports whether the cursor moved.
func (c *Cursor) Next() bool {
	if c.index >= c.length-1 {
		return false
	}
	c.index++
	return true
}

// Previous steps back one question; it reports whether the cursor moved.
func (c *Cursor) Previous() bool {
	if c.index <= 0 {
		return false
	}
	c.index--
	return true
}

// JumpTo moves to i when it is in range; it reports whether the cursor moved.
func (c *Cursor) JumpTo(i int) bool {
	if i < 0 || i >= c.length {
		return false
	}
	c.index = i
	return true
}

// ToggleFlag flips the review flag on questionID and returns the new state.
func (c *Cursor) ToggleFlag(questionID string) bool {
	if _, ok := c.flagged[questionID]; ok {
		delete(c.flagged, questionID)
		return false
	}
	c.flagged[questionID] = struct{}{}
	return true
}

func (c *Cursor) IsFlagged(questionID string) bool {
	_, ok := c.flagged[questionID]
	return ok
}

// Flagged returns the flagged question ids in sorted order.
func (c *Cursor) Flagged() []string {
	out := make([]string, 0, len(c.flagged))
	for id := range c.flagged {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Reset returns to the first question and clears every flag.
func (c *Cursor) Reset() {
	c.index = 0
	c.flagged = make(map[string]struct{})
}
