// Package content converts Telegram messages into the HTML representation
// and file attachments the node-graph service expects.
package content

import (
	"context"
	"errors"
	"fmt"
	"html"

	"github.com/mymmrac/telego"

	"rfkeeper/pkg/rf"
	"rfkeeper/pkg/rflinks"
)

// ErrUnsupported reports a message whose content kind the bot cannot save.
var ErrUnsupported = errors.New("content: unsupported message type")

// Message content kinds. Only the first seven are actionable.
const (
	KindText      = "text"
	KindPhoto     = "photo"
	KindAudio     = "audio"
	KindVoice     = "voice"
	KindVideo     = "video"
	KindVideoNote = "video_note"
	KindDocument  = "document"
	KindLocation  = "location"
	KindVenue     = "venue"
	KindContact   = "contact"
	KindSticker   = "sticker"
	KindAnimation = "animation"
	KindUnknown   = "unknown"
)

// Normalized is the ephemeral result of converting one inbound message.
// It is produced per message and consumed immediately by node creation.
type Normalized struct {
	HTML  string
	Files []rf.FileInfo
}

// Normalizer converts messages, pulling media bytes from Telegram and
// pushing them into the remote file store through the injected functions.
type Normalizer struct {
	Download func(ctx context.Context, fileID string) ([]byte, error)
	Upload   func(ctx context.Context, fileName string, data []byte) (rf.FileInfo, error)
}

// Kind classifies a message by its content.
func Kind(message *telego.Message) string {
	switch {
	case message.Text != "":
		return KindText
	case message.Animation != nil:
		// Animations arrive with a document duplicate; check first.
		return KindAnimation
	case len(message.Photo) > 0:
		return KindPhoto
	case message.Audio != nil:
		return KindAudio
	case message.Voice != nil:
		return KindVoice
	case message.Video != nil:
		return KindVideo
	case message.VideoNote != nil:
		return KindVideoNote
	case message.Document != nil:
		return KindDocument
	case message.Location != nil:
		return KindLocation
	case message.Venue != nil:
		return KindVenue
	case message.Contact != nil:
		return KindContact
	case message.Sticker != nil:
		return KindSticker
	default:
		return KindUnknown
	}
}

// IsSupported reports whether the message kind can be saved as a node.
func IsSupported(message *telego.Message) bool {
	switch Kind(message) {
	case KindText, KindPhoto, KindAudio, KindVoice, KindVideo, KindVideoNote, KindDocument:
		return true
	default:
		return false
	}
}

// Normalize converts one inbound message into node HTML plus attachments.
func (n *Normalizer) Normalize(ctx context.Context, message *telego.Message) (Normalized, error) {
	var result Normalized
	var err error

	switch Kind(message) {
	case KindText:
		result.HTML = ToHTML(message.Text, message.Entities)
	case KindPhoto:
		result, err = n.normalizePhoto(ctx, message)
	case KindAudio:
		name := fmt.Sprintf("%s - %s%s",
			orUnknown(message.Audio.Title), orUnknown(message.Audio.Performer),
			GuessExtension(message.Audio.MimeType))
		result, err = n.normalizeMedia(ctx, message, message.Audio.FileID, SanitizeFileName(name))
	case KindVoice:
		// Voice notes carry no title or performer metadata.
		name := "Unknown - Unknown" + GuessExtension(message.Voice.MimeType)
		result, err = n.normalizeMedia(ctx, message, message.Voice.FileID, SanitizeFileName(name))
	case KindVideo:
		result, err = n.normalizeMedia(ctx, message, message.Video.FileID, "video"+GuessExtension(message.Video.MimeType))
	case KindVideoNote:
		// Video notes expose no MIME type.
		result, err = n.normalizeMedia(ctx, message, message.VideoNote.FileID, "video_note.mp4")
	case KindDocument:
		name := message.Document.FileName
		if name == "" {
			name = "unknown"
		}
		result, err = n.normalizeMedia(ctx, message, message.Document.FileID, SanitizeFileName(name))
	default:
		return Normalized{}, ErrUnsupported
	}

	if err != nil {
		return Normalized{}, err
	}

	result.HTML = forwardedHeader(message) + result.HTML

	return result, nil
}

func (n *Normalizer) normalizePhoto(ctx context.Context, message *telego.Message) (Normalized, error) {
	photo := bestPhoto(message.Photo)

	// Telegram re-encodes photos, so the variant is always JPEG.
	const fileName = "image.jpg"
	info, err := n.transferFile(ctx, photo.FileID, fileName)
	if err != nil {
		return Normalized{}, err
	}

	img := fmt.Sprintf(`<p><img src="%s" height="%d" width="%d"></p>`,
		rflinks.FileURL(info.ID, fileName), photo.Height, photo.Width)

	return Normalized{
		HTML:  img + captionHTML(message),
		Files: []rf.FileInfo{info},
	}, nil
}

func (n *Normalizer) normalizeMedia(ctx context.Context, message *telego.Message, fileID string, fileName string) (Normalized, error) {
	info, err := n.transferFile(ctx, fileID, fileName)
	if err != nil {
		return Normalized{}, err
	}

	return Normalized{
		HTML:  captionHTML(message),
		Files: []rf.FileInfo{info},
	}, nil
}

// transferFile moves one media object from Telegram into the remote file
// store.
func (n *Normalizer) transferFile(ctx context.Context, fileID string, fileName string) (rf.FileInfo, error) {
	data, err := n.Download(ctx, fileID)
	if err != nil {
		return rf.FileInfo{}, fmt.Errorf("download %s: %w", fileID, err)
	}

	info, err := n.Upload(ctx, fileName, data)
	if err != nil {
		return rf.FileInfo{}, fmt.Errorf("upload %s: %w", fileName, err)
	}

	return info, nil
}

func captionHTML(message *telego.Message) string {
	if message.Caption == "" {
		return ""
	}

	return ToHTML(message.Caption, message.CaptionEntities)
}

func bestPhoto(variants []telego.PhotoSize) telego.PhotoSize {
	best := variants[0]
	for _, variant := range variants[1:] {
		if variant.Width*variant.Height > best.Width*best.Height {
			best = variant
		}
	}

	return best
}

func orUnknown(value string) string {
	if value == "" {
		return "Unknown"
	}

	return value
}

// forwardedHeader builds the provenance paragraph for forwarded messages,
// empty for original ones.
func forwardedHeader(message *telego.Message) string {
	origin := message.ForwardOrigin
	if origin == nil {
		return ""
	}

	var title, sourceURL string

	switch o := origin.(type) {
	case *telego.MessageOriginUser:
		title = o.SenderUser.FirstName
		if o.SenderUser.LastName != "" {
			title += " " + o.SenderUser.LastName
		}
		if o.SenderUser.Username != "" {
			sourceURL = "https://t.me/" + o.SenderUser.Username
		}
	case *telego.MessageOriginHiddenUser:
		title = o.SenderUserName
	case *telego.MessageOriginChannel:
		title = o.Chat.Title
		if o.Chat.Username != "" {
			sourceURL = "https://t.me/" + o.Chat.Username
			if o.MessageID != 0 {
				sourceURL += fmt.Sprintf("/%d", o.MessageID)
			}
		}
	case *telego.MessageOriginChat:
		title = o.SenderChat.Title
		if o.SenderChat.Username != "" {
			sourceURL = "https://t.me/" + o.SenderChat.Username
		}
	default:
		return ""
	}

	source := html.EscapeString(title)
	if sourceURL != "" {
		source = anchor(sourceURL, source)
	}

	return fmt.Sprintf("<p>Forwarded from %s:</p>", source)
}
