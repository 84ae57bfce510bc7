package content

import (
	"sort"
	"unicode/utf16"

	"github.com/mymmrac/telego"
)

// span is one node of the rich-text tree decoded from a Telegram message.
//
// A span with an empty entity type is a plain text run; anything else wraps
// its children in the style named by the entity.
type span struct {
	entity   string
	url      string
	userID   int64
	text     string
	children []*span
}

func (s *span) isRun() bool {
	return s.entity == ""
}

// plainText returns the unstyled text covered by the span.
func (s *span) plainText() string {
	if s.isRun() {
		return s.text
	}

	var out string
	for _, child := range s.children {
		out += child.plainText()
	}

	return out
}

type entityRef struct {
	kind   string
	url    string
	userID int64
	start  int
	end    int
}

// parseSpans decodes Telegram text plus its entities into a span tree.
//
// Entity offsets count UTF-16 code units, so the text is re-encoded before
// slicing. Telegram entities either nest or are disjoint; anything that
// partially overlaps a previous entity is dropped.
func parseSpans(text string, entities []telego.MessageEntity) []*span {
	units := utf16.Encode([]rune(text))

	refs := make([]entityRef, 0, len(entities))
	for _, entity := range entities {
		ref := entityRef{
			kind:  string(entity.Type),
			url:   entity.URL,
			start: entity.Offset,
			end:   entity.Offset + entity.Length,
		}
		if entity.User != nil {
			ref.userID = entity.User.ID
		}
		if ref.start < 0 || ref.end > len(units) || ref.start >= ref.end {
			continue
		}
		refs = append(refs, ref)
	}

	sort.SliceStable(refs, func(i, j int) bool {
		if refs[i].start != refs[j].start {
			return refs[i].start < refs[j].start
		}
		return refs[i].end > refs[j].end
	})

	return buildSpans(units, refs, 0, len(units))
}

func buildSpans(units []uint16, refs []entityRef, start int, end int) []*span {
	var spans []*span
	cursor := start

	for i := 0; i < len(refs); {
		ref := refs[i]
		if ref.start < cursor || ref.end > end {
			i++
			continue
		}

		if ref.start > cursor {
			spans = append(spans, textRun(units[cursor:ref.start]))
		}

		// Entities sorted by start collect everything nested in ref.
		inner := i + 1
		for inner < len(refs) && refs[inner].start < ref.end {
			inner++
		}

		spans = append(spans, &span{
			entity:   ref.kind,
			url:      ref.url,
			userID:   ref.userID,
			children: buildSpans(units, refs[i+1:inner], ref.start, ref.end),
		})

		cursor = ref.end
		i = inner
	}

	if cursor < end {
		spans = append(spans, textRun(units[cursor:end]))
	}

	return spans
}

func textRun(units []uint16) *span {
	return &span{text: string(utf16.Decode(units))}
}
