package convert

import (
	"archive/zip"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"x2c/config"
)

const sampleTemplate = `<x2:style>.box { color: red }</x2:style>
<x2:div class="box"><x2:p>Hello</x2:p></x2:div>
`

func loadDocumentConfig(t *testing.T) *config.DocumentConfig {
	t.Helper()
	cfg, err := config.LoadConfiguration("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	return &cfg.Document
}

// TestIsArchiveFile tests archive file detection
func TestIsArchiveFile(t *testing.T) {
	tmpDir := t.TempDir()

	t.Run("non-zip extension", func(t *testing.T) {
		filePath := filepath.Join(tmpDir, "test.txt")
		if err := os.WriteFile(filePath, []byte("not a zip"), 0644); err != nil {
			t.Fatalf("Failed to create test file: %v", err)
		}
		got, err := isArchiveFile(filePath)
		if err != nil {
			t.Errorf("isArchiveFile() error = %v", err)
		}
		if got {
			t.Errorf("isArchiveFile() = %v, want false", got)
		}
	})

	t.Run("zip extension but invalid content", func(t *testing.T) {
		filePath := filepath.Join(tmpDir, "test.zip")
		if err := os.WriteFile(filePath, []byte("not a real zip file"), 0644); err != nil {
			t.Fatalf("Failed to create test file: %v", err)
		}
		got, err := isArchiveFile(filePath)
		if err != nil {
			t.Errorf("isArchiveFile() error = %v", err)
		}
		if got {
			t.Errorf("isArchiveFile() = %v, want false", got)
		}
	})

	t.Run("valid zip file", func(t *testing.T) {
		filePath := filepath.Join(tmpDir, "test2.ZIP")
		createZip(t, filePath, map[string][]byte{"mail/a.x2": []byte(sampleTemplate)})

		got, err := isArchiveFile(filePath)
		if err != nil {
			t.Errorf("isArchiveFile() error = %v", err)
		}
		if !got {
			t.Errorf("isArchiveFile() = %v, want true", got)
		}
	})
}

// TestIsArchiveFile_NonExistent tests with non-existent file
func TestIsArchiveFile_NonExistent(t *testing.T) {
	_, err := isArchiveFile("/nonexistent/file.zip")
	if err == nil {
		t.Error("Expected error for non-existent file, got nil")
	}
}

func TestDetectUTF(t *testing.T) {
	tests := []struct {
		name string
		buf  []byte
		want srcEncoding
	}{
		{"UTF-8 BOM", []byte{0xEF, 0xBB, 0xBF, 0x00}, encUTF8},
		{"UTF-16 Big Endian BOM", []byte{0xFE, 0xFF, 0x00, 0x00}, encUTF16BigEndian},
		{"UTF-16 Little Endian BOM", []byte{0xFF, 0xFE, 0x01, 0x00}, encUTF16LittleEndian},
		{"UTF-32 Big Endian BOM", []byte{0x00, 0x00, 0xFE, 0xFF}, encUTF32BigEndian},
		{"UTF-32 Little Endian BOM", []byte{0xFF, 0xFE, 0x00, 0x00}, encUTF32LittleEndian},
		{"short UTF-16 BOM", []byte{0xFF, 0xFE}, encUTF16LittleEndian},
		{"No BOM", []byte{0x00, 0x01, 0x02, 0x03}, encUnknown},
		{"empty", nil, encUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := detectUTF(tt.buf); got != tt.want {
				t.Errorf("detectUTF() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTemplateMatcher(t *testing.T) {
	utf16, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder().Bytes([]byte(sampleTemplate))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	// cut in the middle of multibyte rune
	cut := []byte("<x2:p>Привет")
	cut = cut[:len(cut)-1]

	tests := []struct {
		name string
		buf  []byte
		want bool
	}{
		{"markup", []byte(sampleTemplate), true},
		{"utf-8 bom", append([]byte{0xEF, 0xBB, 0xBF}, sampleTemplate...), true},
		{"utf-16 bom", utf16, true},
		{"truncated rune", cut, true},
		{"plain text", []byte("just some words"), false},
		{"binary", []byte{'<', 0x00, 0x01, 0x02}, false},
		{"invalid utf-8", []byte{'<', 0xC3, 0x28, 'a', 'b', 'c', 'd', 'e'}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := templateMatcher(tt.buf); got != tt.want {
				t.Errorf("templateMatcher() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsTemplateFile(t *testing.T) {
	tmpDir := t.TempDir()
	doc := loadDocumentConfig(t)

	tests := []struct {
		name     string
		filename string
		content  []byte
		wantTmpl bool
		wantEnc  srcEncoding
	}{
		{"plain template", "mail.x2", []byte(sampleTemplate), true, encUnknown},
		{"html with BOM", "mail.html", append([]byte{0xEF, 0xBB, 0xBF}, sampleTemplate...), true, encUTF8},
		{"uppercase extension", "MAIL.HTM", []byte(sampleTemplate), true, encUnknown},
		{"unknown extension", "mail.txt", []byte(sampleTemplate), false, encUnknown},
		{"not markup", "notes.x2", []byte("nothing to see"), false, encUnknown},
		{"empty", "empty.x2", nil, false, encUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filePath := filepath.Join(tmpDir, tt.filename)
			if err := os.WriteFile(filePath, tt.content, 0644); err != nil {
				t.Fatalf("Failed to create test file: %v", err)
			}

			gotTmpl, gotEnc, err := isTemplateFile(filePath, doc)
			if err != nil {
				t.Fatalf("isTemplateFile() error = %v", err)
			}
			if gotTmpl != tt.wantTmpl {
				t.Errorf("isTemplateFile() template = %v, want %v", gotTmpl, tt.wantTmpl)
			}
			if gotEnc != tt.wantEnc {
				t.Errorf("isTemplateFile() encoding = %v, want %v", gotEnc, tt.wantEnc)
			}
		})
	}
}

func TestIsTemplateFile_NonExistent(t *testing.T) {
	_, _, err := isTemplateFile("/nonexistent/file.x2", loadDocumentConfig(t))
	if err == nil {
		t.Error("Expected error for non-existent file, got nil")
	}
}

func TestIsTemplateInArchive(t *testing.T) {
	zipPath := filepath.Join(t.TempDir(), "test.zip")
	doc := loadDocumentConfig(t)

	zipFile, err := os.Create(zipPath)
	if err != nil {
		t.Fatalf("Failed to create zip file: %v", err)
	}
	w := zip.NewWriter(zipFile)
	for _, e := range []struct {
		name string
		data []byte
	}{
		{"a.x2", []byte(sampleTemplate)},
		{"b.txt", []byte(sampleTemplate)},
		{"c.html", append([]byte{0xEF, 0xBB, 0xBF}, sampleTemplate...)},
	} {
		f, err := w.CreateHeader(&zip.FileHeader{Name: e.name, Method: zip.Store})
		if err != nil {
			t.Fatalf("Failed to create file in zip: %v", err)
		}
		if _, err := f.Write(e.data); err != nil {
			t.Fatalf("Failed to write to zip: %v", err)
		}
	}
	w.Close()
	zipFile.Close()

	r, err := zip.OpenReader(zipPath)
	if err != nil {
		t.Fatalf("Failed to open zip: %v", err)
	}
	defer r.Close()

	tests := []struct {
		name     string
		fileIdx  int
		wantTmpl bool
		wantEnc  srcEncoding
	}{
		{"template in archive", 0, true, encUnknown},
		{"other file in archive", 1, false, encUnknown},
		{"template with BOM in archive", 2, true, encUTF8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotTmpl, gotEnc, err := isTemplateInArchive(r.File[tt.fileIdx], doc)
			if err != nil {
				t.Fatalf("isTemplateInArchive() error = %v", err)
			}
			if gotTmpl != tt.wantTmpl {
				t.Errorf("isTemplateInArchive() template = %v, want %v", gotTmpl, tt.wantTmpl)
			}
			if gotEnc != tt.wantEnc {
				t.Errorf("isTemplateInArchive() encoding = %v, want %v", gotEnc, tt.wantEnc)
			}
		})
	}
}

func TestSelectReader(t *testing.T) {
	const text = "<x2:p>Ünïcode</x2:p>"

	for _, enc := range []srcEncoding{
		encUnknown,
		encUTF8,
		encUTF16BigEndian,
		encUTF16LittleEndian,
		encUTF32BigEndian,
		encUTF32LittleEndian,
	} {
		t.Run(enc.String(), func(t *testing.T) {
			data := encodeSample(t, []byte(text), enc)
			if got := detectUTF(data); got != enc {
				t.Fatalf("detectUTF() = %v, want %v", got, enc)
			}
			out, err := io.ReadAll(selectReader(bytes.NewReader(data), enc))
			if err != nil {
				t.Fatalf("ReadAll() error = %v", err)
			}
			if string(out) != text {
				t.Errorf("selectReader() produced %q, want %q", out, text)
			}
		})
	}
}

func TestSelectReader_Panic(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected panic for invalid encoding, but didn't panic")
		}
	}()
	selectReader(bytes.NewReader([]byte("test")), srcEncoding(999))
}

func TestInputReader(t *testing.T) {
	const text = "<x2:p>Привет</x2:p>"

	t.Run("forced code page", func(t *testing.T) {
		data, err := charmap.Windows1251.NewEncoder().Bytes([]byte(text))
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		r, err := inputReader(bytes.NewReader(data), encUnknown, charmap.Windows1251)
		if err != nil {
			t.Fatalf("inputReader() error = %v", err)
		}
		out, _ := io.ReadAll(r)
		if string(out) != text {
			t.Errorf("inputReader() produced %q, want %q", out, text)
		}
	})

	t.Run("detected utf-8", func(t *testing.T) {
		r, err := inputReader(bytes.NewReader([]byte(text)), encUnknown, nil)
		if err != nil {
			t.Fatalf("inputReader() error = %v", err)
		}
		out, _ := io.ReadAll(r)
		if string(out) != text {
			t.Errorf("inputReader() produced %q, want %q", out, text)
		}
	})

	t.Run("bom wins over code page", func(t *testing.T) {
		data := append([]byte{0xEF, 0xBB, 0xBF}, text...)
		r, err := inputReader(bytes.NewReader(data), encUTF8, charmap.Windows1251)
		if err != nil {
			t.Fatalf("inputReader() error = %v", err)
		}
		out, _ := io.ReadAll(r)
		if string(out) != text {
			t.Errorf("inputReader() produced %q, want %q", out, text)
		}
	})
}

func TestSrcEncoding_String(t *testing.T) {
	tests := map[srcEncoding]string{
		encUnknown:           "unknown",
		encUTF8:              "utf-8",
		encUTF16BigEndian:    "utf-16be",
		encUTF16LittleEndian: "utf-16le",
		encUTF32BigEndian:    "utf-32be",
		encUTF32LittleEndian: "utf-32le",
		srcEncoding(42):      "srcEncoding(42)",
	}
	for enc, want := range tests {
		if got := enc.String(); got != want {
			t.Errorf("String() = %q, want %q", got, want)
		}
	}
}
