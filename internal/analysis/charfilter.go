package analysis

import "strings"

// filtered is the running state of the char-filter chain: the rewritten text
// plus, for every byte of it, the offset of the original input byte it came
// from. offsets has len(text)+1 entries so token end boundaries can be mapped
// back too. Offset fidelity is what lets the highlighter place spans in the
// raw text after ampersand replacement, apostrophe removal and HTML stripping
// have shifted everything around.
type filtered struct {
	text    string
	offsets []int
}

type charFilter func(filtered) filtered

func newFiltered(text string) filtered {
	offsets := make([]int, len(text)+1)
	for i := range offsets {
		offsets[i] = i
	}
	return filtered{text: text, offsets: offsets}
}

// replace substitutes every occurrence of old with new. Replacement bytes all
// map back to the start of the original occurrence, so a token containing them
// still points at the right source span.
func (f filtered) replace(old, new string) filtered {
	if old == "" || !strings.Contains(f.text, old) {
		return f
	}
	var b strings.Builder
	offsets := make([]int, 0, len(f.text)+1)
	i := 0
	for i < len(f.text) {
		if strings.HasPrefix(f.text[i:], old) {
			for j := 0; j < len(new); j++ {
				b.WriteByte(new[j])
				offsets = append(offsets, f.offsets[i])
			}
			i += len(old)
			continue
		}
		b.WriteByte(f.text[i])
		offsets = append(offsets, f.offsets[i])
		i++
	}
	offsets = append(offsets, f.offsets[len(f.text)])
	return filtered{text: b.String(), offsets: offsets}
}

// ampersandToAnd rewrites "&" to "and" so sentiment terms entered with an
// ampersand match letters that spell the word out.
func ampersandToAnd(f filtered) filtered {
	return f.replace("&", "and")
}

// removeApostrophes deletes apostrophes so "don't" analyzes to "dont".
func removeApostrophes(f filtered) filtered {
	return f.replace("'", "").replace("’", "")
}

// ampersandMarker is a letters-only stand-in for "&" so the standard
// tokenizer does not discard it. The restoreAmpersand token filter swaps it
// back after tokenization, which is what makes full-text search for "&" work.
const ampersandMarker = "QQAMPERSANDMARKERQQ"

func hideAmpersand(f filtered) filtered {
	return f.replace("&", ampersandMarker)
}

// htmlEntities handled by stripHTML, in scan order.
var htmlEntities = []struct{ entity, replacement string }{
	{"&nbsp;", " "},
	{"&amp;", "&"},
	{"&lt;", "<"},
	{"&gt;", ">"},
	{"&quot;", "\""},
	{"&apos;", "'"},
	{"&#39;", "'"},
}

// stripHTML removes markup and decodes common entities, keeping the offset
// map intact. <br> and closing block tags become newlines so words on either
// side of a break do not run together.
func stripHTML(f filtered) filtered {
	var b strings.Builder
	offsets := make([]int, 0, len(f.text)+1)
	i := 0
outer:
	for i < len(f.text) {
		if f.text[i] == '<' {
			end := strings.IndexByte(f.text[i:], '>')
			if end >= 0 {
				tag := strings.ToLower(f.text[i+1 : i+end])
				if fields := strings.Fields(tag); len(fields) > 0 {
					tag = fields[0]
				}
				tag = strings.TrimSuffix(tag, "/")
				if tag == "br" || tag == "/p" || tag == "/div" {
					b.WriteByte('\n')
					offsets = append(offsets, f.offsets[i])
				}
				i += end + 1
				continue
			}
		}
		if f.text[i] == '&' {
			for _, e := range htmlEntities {
				if strings.HasPrefix(f.text[i:], e.entity) {
					for j := 0; j < len(e.replacement); j++ {
						b.WriteByte(e.replacement[j])
						offsets = append(offsets, f.offsets[i])
					}
					i += len(e.entity)
					continue outer
				}
			}
		}
		b.WriteByte(f.text[i])
		offsets = append(offsets, f.offsets[i])
		i++
	}
	offsets = append(offsets, f.offsets[len(f.text)])
	return filtered{text: b.String(), offsets: offsets}
}
