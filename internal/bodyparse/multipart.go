package bodyparse

import (
	"bytes"
	"io"
	"mime"
	"mime/multipart"
	"net/textproto"
	"os"

	"github.com/blackcoderx/httprun/internal/model"
)

// BuildMultipart assembles an outgoing multipart/form-data body from a
// field list, delegating wire encoding to mime/multipart. It returns the
// encoded body and the Content-Type header value carrying the chosen
// boundary.
func BuildMultipart(fields []model.MultipartField) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, f := range fields {
		if f.FilePath != "" {
			file, err := os.Open(f.FilePath)
			if err != nil {
				return nil, "", err
			}
			filename := f.Filename
			if filename == "" {
				filename = f.FilePath
			}
			var part io.Writer
			if f.MimeType != "" {
				h := make(textproto.MIMEHeader)
				h.Set("Content-Disposition", `form-data; name="`+f.Name+`"; filename="`+filename+`"`)
				h.Set("Content-Type", f.MimeType)
				part, err = w.CreatePart(h)
			} else {
				part, err = w.CreateFormFile(f.Name, filename)
			}
			if err != nil {
				file.Close()
				return nil, "", err
			}
			if _, err := io.Copy(part, file); err != nil {
				file.Close()
				return nil, "", err
			}
			file.Close()
			continue
		}

		fw, err := w.CreateFormField(f.Name)
		if err != nil {
			return nil, "", err
		}
		if _, err := fw.Write([]byte(f.Value)); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

// ParseMultipart decodes an incoming multipart/form-data body (used when
// asserting against a response that happens to carry one) into a field
// list, using the boundary declared in contentType.
func ParseMultipart(contentType string, body []byte) ([]model.MultipartField, error) {
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil, err
	}
	boundary := params["boundary"]
	if boundary == "" {
		return nil, io.ErrUnexpectedEOF
	}

	reader := multipart.NewReader(bytes.NewReader(body), boundary)
	var fields []model.MultipartField
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(part)
		if err != nil {
			return nil, err
		}
		f := model.MultipartField{
			Name:     part.FormName(),
			Filename: part.FileName(),
			MimeType: part.Header.Get("Content-Type"),
		}
		if f.Filename == "" {
			f.Value = string(data)
		}
		fields = append(fields, f)
	}
	return fields, nil
}
