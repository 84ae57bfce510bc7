package content

import (
	"context"
	"errors"
	"testing"

	"github.com/mymmrac/telego"

	"rfkeeper/pkg/rf"
)

func newTestNormalizer(t *testing.T) (*Normalizer, *[]string) {
	t.Helper()

	var uploads []string
	normalizer := &Normalizer{
		Download: func(_ context.Context, fileID string) ([]byte, error) {
			return []byte("bytes:" + fileID), nil
		},
		Upload: func(_ context.Context, fileName string, data []byte) (rf.FileInfo, error) {
			uploads = append(uploads, fileName)
			return rf.FileInfo{ID: "file-1", Name: fileName}, nil
		},
	}

	return normalizer, &uploads
}

func TestKind(t *testing.T) {
	tests := []struct {
		name    string
		message *telego.Message
		want    string
	}{
		{"text", &telego.Message{Text: "hi"}, KindText},
		{"photo", &telego.Message{Photo: []telego.PhotoSize{{FileID: "p"}}}, KindPhoto},
		{"audio", &telego.Message{Audio: &telego.Audio{FileID: "a"}}, KindAudio},
		{"voice", &telego.Message{Voice: &telego.Voice{FileID: "v"}}, KindVoice},
		{"video", &telego.Message{Video: &telego.Video{FileID: "v"}}, KindVideo},
		{"video note", &telego.Message{VideoNote: &telego.VideoNote{FileID: "v"}}, KindVideoNote},
		{"document", &telego.Message{Document: &telego.Document{FileID: "d"}}, KindDocument},
		{"sticker", &telego.Message{Sticker: &telego.Sticker{FileID: "s"}}, KindSticker},
		{"animation wins over document", &telego.Message{
			Animation: &telego.Animation{FileID: "g"},
			Document:  &telego.Document{FileID: "g"},
		}, KindAnimation},
		{"location", &telego.Message{Location: &telego.Location{}}, KindLocation},
		{"empty", &telego.Message{}, KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Kind(tt.message); got != tt.want {
				t.Fatalf("Kind() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNormalizeText(t *testing.T) {
	normalizer, uploads := newTestNormalizer(t)

	got, err := normalizer.Normalize(context.Background(), &telego.Message{Text: "hello\nworld"})
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if got.HTML != "<p>hello</p><p>world</p>" {
		t.Fatalf("HTML = %q", got.HTML)
	}
	if len(got.Files) != 0 || len(*uploads) != 0 {
		t.Fatalf("text message must not touch files")
	}
}

func TestNormalizePhoto(t *testing.T) {
	normalizer, uploads := newTestNormalizer(t)

	message := &telego.Message{
		Photo: []telego.PhotoSize{
			{FileID: "small", Width: 90, Height: 60},
			{FileID: "large", Width: 1280, Height: 720},
		},
		Caption: "sunset",
	}

	got, err := normalizer.Normalize(context.Background(), message)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}

	want := `<p><img src="https://app.redforester.com/api/files/file-1?filename=image.jpg" height="720" width="1280"></p><p>sunset</p>`
	if got.HTML != want {
		t.Fatalf("HTML = %q, want %q", got.HTML, want)
	}
	if len(got.Files) != 1 || got.Files[0].Name != "image.jpg" {
		t.Fatalf("Files = %+v", got.Files)
	}
	if len(*uploads) != 1 || (*uploads)[0] != "image.jpg" {
		t.Fatalf("uploads = %v", *uploads)
	}
}

func TestNormalizeAudioName(t *testing.T) {
	tests := []struct {
		name  string
		audio *telego.Audio
		want  string
	}{
		{"full metadata", &telego.Audio{FileID: "a", Title: "Song", Performer: "Band", MimeType: "audio/mpeg"}, "Song - Band.mp3"},
		{"no metadata", &telego.Audio{FileID: "a", MimeType: "audio/mpeg"}, "Unknown - Unknown.mp3"},
		{"m4a", &telego.Audio{FileID: "a", Title: "Song", Performer: "Band", MimeType: "audio/mp4"}, "Song - Band.m4a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			normalizer, uploads := newTestNormalizer(t)

			if _, err := normalizer.Normalize(context.Background(), &telego.Message{Audio: tt.audio}); err != nil {
				t.Fatalf("Normalize() error = %v", err)
			}
			if len(*uploads) != 1 || (*uploads)[0] != tt.want {
				t.Fatalf("uploads = %v, want [%s]", *uploads, tt.want)
			}
		})
	}
}

func TestNormalizeVoice(t *testing.T) {
	normalizer, uploads := newTestNormalizer(t)

	message := &telego.Message{Voice: &telego.Voice{FileID: "v", MimeType: "audio/mpeg"}}
	got, err := normalizer.Normalize(context.Background(), message)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if (*uploads)[0] != "Unknown - Unknown.mp3" {
		t.Fatalf("uploads = %v", *uploads)
	}
	if got.HTML != "" {
		t.Fatalf("HTML = %q, want empty without caption", got.HTML)
	}
}

func TestNormalizeVideoNote(t *testing.T) {
	normalizer, uploads := newTestNormalizer(t)

	message := &telego.Message{VideoNote: &telego.VideoNote{FileID: "v"}}
	if _, err := normalizer.Normalize(context.Background(), message); err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if (*uploads)[0] != "video_note.mp4" {
		t.Fatalf("uploads = %v", *uploads)
	}
}

func TestNormalizeDocumentName(t *testing.T) {
	tests := []struct {
		name     string
		fileName string
		want     string
	}{
		{"kept", "report.pdf", "report.pdf"},
		{"sanitized", `bad/name?.pdf`, "bad_name_.pdf"},
		{"missing", "", "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			normalizer, uploads := newTestNormalizer(t)

			message := &telego.Message{Document: &telego.Document{FileID: "d", FileName: tt.fileName}}
			if _, err := normalizer.Normalize(context.Background(), message); err != nil {
				t.Fatalf("Normalize() error = %v", err)
			}
			if (*uploads)[0] != tt.want {
				t.Fatalf("uploads = %v, want [%s]", *uploads, tt.want)
			}
		})
	}
}

func TestNormalizeUnsupported(t *testing.T) {
	normalizer, _ := newTestNormalizer(t)

	for _, message := range []*telego.Message{
		{Sticker: &telego.Sticker{FileID: "s"}},
		{Location: &telego.Location{}},
		{},
	} {
		if _, err := normalizer.Normalize(context.Background(), message); !errors.Is(err, ErrUnsupported) {
			t.Fatalf("Normalize() error = %v, want ErrUnsupported", err)
		}
	}
}

func TestNormalizeDownloadFailure(t *testing.T) {
	wantErr := errors.New("telegram down")
	normalizer := &Normalizer{
		Download: func(context.Context, string) ([]byte, error) { return nil, wantErr },
		Upload: func(context.Context, string, []byte) (rf.FileInfo, error) {
			t.Fatal("upload must not run after a failed download")
			return rf.FileInfo{}, nil
		},
	}

	message := &telego.Message{Document: &telego.Document{FileID: "d", FileName: "x.txt"}}
	if _, err := normalizer.Normalize(context.Background(), message); !errors.Is(err, wantErr) {
		t.Fatalf("Normalize() error = %v, want wrapped %v", err, wantErr)
	}
}

func TestNormalizeForwardedHeader(t *testing.T) {
	tests := []struct {
		name   string
		origin telego.MessageOrigin
		want   string
	}{
		{
			"user with username",
			&telego.MessageOriginUser{SenderUser: telego.User{FirstName: "Ada", LastName: "Lovelace", Username: "ada"}},
			`<p>Forwarded from <a href="https://t.me/ada" target="_blank">Ada Lovelace</a>:</p><p>hi</p>`,
		},
		{
			"hidden user",
			&telego.MessageOriginHiddenUser{SenderUserName: "Someone"},
			"<p>Forwarded from Someone:</p><p>hi</p>",
		},
		{
			"channel",
			&telego.MessageOriginChannel{Chat: telego.Chat{Title: "News", Username: "news"}, MessageID: 7},
			`<p>Forwarded from <a href="https://t.me/news/7" target="_blank">News</a>:</p><p>hi</p>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			normalizer, _ := newTestNormalizer(t)

			message := &telego.Message{Text: "hi", ForwardOrigin: tt.origin}
			got, err := normalizer.Normalize(context.Background(), message)
			if err != nil {
				t.Fatalf("Normalize() error = %v", err)
			}
			if got.HTML != tt.want {
				t.Fatalf("HTML = %q, want %q", got.HTML, tt.want)
			}
		})
	}
}
