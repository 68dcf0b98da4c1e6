package writer

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"

	"github.com/yinglunfeng/esa-httpclient/model"
)

// newMultipartWriter wraps stdlib mime/multipart around w (normally an
// io.PipeWriter so the caller can stream the envelope straight onto the
// connection instead of buffering it) and returns the full Content-Type
// header value including the generated boundary.
func newMultipartWriter(w io.Writer) (*multipart.Writer, string) {
	mw := multipart.NewWriter(w)
	return mw, "multipart/form-data; boundary=" + mw.Boundary()
}

// writeMultipartParts streams body's attrs and file parts into mw. File
// parts are copied from disk in FileStreamSegment-sized reads so a large
// upload never sits fully in memory (spec.md §4.6 edge case).
func writeMultipartParts(mw *multipart.Writer, body model.Body) error {
	for name, values := range body.Attrs {
		for _, v := range values {
			if err := mw.WriteField(name, v); err != nil {
				return err
			}
		}
	}

	buf := make([]byte, FileStreamSegment)
	for _, part := range body.Parts {
		var dst io.Writer
		var err error
		if part.ContentType != "" {
			header := make(map[string][]string)
			header["Content-Disposition"] = []string{
				fmt.Sprintf(`form-data; name=%q; filename=%q`, part.Name, part.Filename),
			}
			header["Content-Type"] = []string{part.ContentType}
			dst, err = mw.CreatePart(header)
		} else {
			dst, err = mw.CreateFormFile(part.Name, part.Filename)
		}
		if err != nil {
			return err
		}

		if part.FilePath != "" {
			f, err := os.Open(part.FilePath)
			if err != nil {
				return fmt.Errorf("writer: open multipart file %s: %w", part.FilePath, err)
			}
			_, err = io.CopyBuffer(dst, f, buf)
			f.Close()
			if err != nil {
				return err
			}
			continue
		}
		if _, err := dst.Write(part.Bytes); err != nil {
			return err
		}
	}
	return nil
}
