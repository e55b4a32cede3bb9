package convert

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/matchers"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/encoding/unicode/utf32"
	"golang.org/x/text/transform"

	"x2c/config"
)

// how much of the file is looked at when detecting its type
const headerSize = 8192

type srcEncoding int

const (
	encUnknown srcEncoding = iota
	encUTF8
	encUTF16BigEndian
	encUTF16LittleEndian
	encUTF32BigEndian
	encUTF32LittleEndian
)

func (e srcEncoding) String() string {
	switch e {
	case encUnknown:
		return "unknown"
	case encUTF8:
		return "utf-8"
	case encUTF16BigEndian:
		return "utf-16be"
	case encUTF16LittleEndian:
		return "utf-16le"
	case encUTF32BigEndian:
		return "utf-32be"
	case encUTF32LittleEndian:
		return "utf-32le"
	default:
		return fmt.Sprintf("srcEncoding(%d)", int(e))
	}
}

var templateType = filetype.NewType("x2", "text/x-x2client")

func init() {
	filetype.AddMatcher(templateType, templateMatcher)
}

// templateMatcher accepts text which looks like markup: after decoding
// according to BOM it is valid UTF-8 without NULs and has at least one tag
// opening.
func templateMatcher(buf []byte) bool {
	text, ok := decodeHeader(buf)
	if !ok || bytes.IndexByte(text, 0) >= 0 {
		return false
	}
	// header may end in the middle of a rune
	for i := 0; i < utf8.UTFMax && len(text) > 0 && !utf8.Valid(text); i++ {
		text = text[:len(text)-1]
	}
	return utf8.Valid(text) && bytes.IndexByte(text, '<') >= 0
}

func decodeHeader(buf []byte) ([]byte, bool) {
	var (
		dec  *encoding.Decoder
		unit = 1
	)
	switch detectUTF(buf) {
	case encUnknown:
		return buf, true
	case encUTF8:
		return buf[3:], true
	case encUTF16BigEndian:
		dec, unit = unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder(), 2
	case encUTF16LittleEndian:
		dec, unit = unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder(), 2
	case encUTF32BigEndian:
		dec, unit = utf32.UTF32(utf32.BigEndian, utf32.ExpectBOM).NewDecoder(), 4
	case encUTF32LittleEndian:
		dec, unit = utf32.UTF32(utf32.LittleEndian, utf32.ExpectBOM).NewDecoder(), 4
	}
	text, _, err := transform.Bytes(dec, buf[:len(buf)-len(buf)%unit])
	if err != nil {
		return nil, false
	}
	return text, true
}

func isUTF32BigEndianBOM4(buf []byte) bool {
	return buf[0] == 0x00 && buf[1] == 0x00 && buf[2] == 0xFE && buf[3] == 0xFF
}

func isUTF32LittleEndianBOM4(buf []byte) bool {
	return buf[0] == 0xFF && buf[1] == 0xFE && buf[2] == 0x00 && buf[3] == 0x00
}

func isUTF8BOM3(buf []byte) bool {
	return buf[0] == 0xEF && buf[1] == 0xBB && buf[2] == 0xBF
}

func isUTF16BigEndianBOM2(buf []byte) bool {
	return buf[0] == 0xFE && buf[1] == 0xFF
}

func isUTF16LittleEndianBOM2(buf []byte) bool {
	return buf[0] == 0xFF && buf[1] == 0xFE
}

// detectUTF looks for byte order mark, UTF-32 is checked first since its
// little endian mark starts with UTF-16 one.
func detectUTF(buf []byte) srcEncoding {
	if len(buf) >= 4 {
		if isUTF32BigEndianBOM4(buf) {
			return encUTF32BigEndian
		}
		if isUTF32LittleEndianBOM4(buf) {
			return encUTF32LittleEndian
		}
	}
	if len(buf) >= 3 && isUTF8BOM3(buf) {
		return encUTF8
	}
	if len(buf) >= 2 {
		if isUTF16BigEndianBOM2(buf) {
			return encUTF16BigEndian
		}
		if isUTF16LittleEndianBOM2(buf) {
			return encUTF16LittleEndian
		}
	}
	return encUnknown
}

func readHeader(r io.Reader) ([]byte, error) {
	buf := make([]byte, headerSize)
	n, err := io.ReadFull(r, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return buf[:n], nil
}

func isArchiveFile(fname string) (bool, error) {
	file, err := os.Open(fname)
	if err != nil {
		return false, err
	}
	defer file.Close()

	if !strings.EqualFold(filepath.Ext(fname), ".zip") {
		return false, nil
	}

	head, err := readHeader(file)
	if err != nil {
		return false, err
	}
	return filetype.IsArchive(head) && matchers.Zip(head), nil
}

func checkTemplate(name string, head []byte, doc *config.DocumentConfig) (bool, srcEncoding) {
	if !doc.IsTemplateFile(name) {
		return false, encUnknown
	}
	kind, err := filetype.Match(head)
	if err != nil || kind != templateType {
		return false, encUnknown
	}
	return true, detectUTF(head)
}

func isTemplateFile(fname string, doc *config.DocumentConfig) (bool, srcEncoding, error) {
	file, err := os.Open(fname)
	if err != nil {
		return false, encUnknown, err
	}
	defer file.Close()

	head, err := readHeader(file)
	if err != nil {
		return false, encUnknown, err
	}
	ok, enc := checkTemplate(fname, head, doc)
	return ok, enc, nil
}

func isTemplateInArchive(f *zip.File, doc *config.DocumentConfig) (bool, srcEncoding, error) {
	if !doc.IsTemplateFile(f.FileHeader.Name) {
		return false, encUnknown, nil
	}

	r, err := f.Open()
	if err != nil {
		return false, encUnknown, err
	}
	defer r.Close()

	head, err := readHeader(r)
	if err != nil {
		return false, encUnknown, err
	}
	ok, enc := checkTemplate(f.FileHeader.Name, head, doc)
	return ok, enc, nil
}

// selectReader removes byte order mark and converts input to UTF-8.
func selectReader(r io.Reader, enc srcEncoding) io.Reader {
	switch enc {
	case encUnknown:
		return r
	case encUTF8:
		return transform.NewReader(r, unicode.UTF8BOM.NewDecoder())
	case encUTF16BigEndian:
		return transform.NewReader(r, unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder())
	case encUTF16LittleEndian:
		return transform.NewReader(r, unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder())
	case encUTF32BigEndian:
		return transform.NewReader(r, utf32.UTF32(utf32.BigEndian, utf32.ExpectBOM).NewDecoder())
	case encUTF32LittleEndian:
		return transform.NewReader(r, utf32.UTF32(utf32.LittleEndian, utf32.ExpectBOM).NewDecoder())
	}
	// this should never happen
	panic(fmt.Sprintf("unexpected source encoding: %d", enc))
}

// inputReader returns UTF-8 reader for template. Byte order mark wins,
// otherwise forced code page is used when set, otherwise encoding is guessed
// from content.
func inputReader(r io.Reader, enc srcEncoding, cp encoding.Encoding) (io.Reader, error) {
	if enc != encUnknown {
		return selectReader(r, enc), nil
	}
	if cp != nil {
		return transform.NewReader(r, cp.NewDecoder()), nil
	}
	cr, err := charset.NewReader(r, "text/html")
	if err != nil {
		return nil, fmt.Errorf("unable to detect template encoding: %w", err)
	}
	return cr, nil
}
