package analysis

// Token is a single term produced by an analyzer, with its span in the
// original (pre-char-filter) input and its position in the token stream.
type Token struct {
	Text        string `json:"token"`
	StartOffset int    `json:"start_offset"`
	EndOffset   int    `json:"end_offset"`
	Position    int    `json:"position"`
	Type        string `json:"type"`
}

const (
	TypeAlphanum = "<ALPHANUM>"
	TypeShingle  = "shingle"
)
