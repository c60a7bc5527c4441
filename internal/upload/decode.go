package upload

import (
	"bytes"
	"errors"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/simplifiedchinese"
)

// ErrUnsupportedEncoding is returned when no known text encoding decodes the upload
var ErrUnsupportedEncoding = errors.New("unsupported text encoding")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

type candidate struct {
	name     string
	encoding encoding.Encoding
}

// legacyEncodings are tried in order after UTF-8
var legacyEncodings = []candidate{
	{"gbk", simplifiedchinese.GBK},
	{"gb18030", simplifiedchinese.GB18030},
}

// Decode converts raw upload bytes to text, trying UTF-8, GBK and GB18030 in order.
// It returns the name of the encoding that succeeded.
func Decode(raw []byte) (string, string, error) {
	if bytes.IndexByte(raw, 0) >= 0 {
		return "", "", ErrUnsupportedEncoding
	}

	if utf8.Valid(raw) {
		return string(bytes.TrimPrefix(raw, utf8BOM)), "utf-8", nil
	}

	for _, c := range legacyEncodings {
		out, err := c.encoding.NewDecoder().Bytes(raw)
		if err != nil {
			continue
		}
		text := string(out)
		// x/text substitutes invalid sequences instead of failing
		if strings.ContainsRune(text, utf8.RuneError) {
			continue
		}
		return text, c.name, nil
	}
	return "", "", ErrUnsupportedEncoding
}
