package backend

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"

	"github.com/digimall/admin-gateway/internal/domain/identity"
)

// PathMediaUpload is the backend's upload endpoint, relative to the API prefix
const PathMediaUpload = "media/upload"

// RawResponse is a backend answer relayed to the caller unchanged
type RawResponse struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// MediaUpload describes a file to re-stream to the backend
type MediaUpload struct {
	Filename    string
	ContentType string
	Folder      string
	Size        int64
	Content     io.Reader
}

// UploadMedia re-encodes upload as multipart/form-data (fields "file" and
// "folder") and streams it to the backend on behalf of id.
func (c *Client) UploadMedia(ctx context.Context, id identity.Identity, upload MediaUpload) (*RawResponse, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		pw.CloseWithError(writeMultipart(mw, upload))
	}()

	resp, err := c.send(ctx, call{
		method:   http.MethodPost,
		path:     PathMediaUpload,
		identity: &id,
	}, pr, mw.FormDataContentType())
	if err != nil {
		pr.CloseWithError(err)
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, classify(fmt.Errorf("failed to read upload response: %w", err))
	}

	return &RawResponse{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

func writeMultipart(mw *multipart.Writer, upload MediaUpload) error {
	if upload.Folder != "" {
		if err := mw.WriteField("folder", upload.Folder); err != nil {
			return err
		}
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, upload.Filename))
	contentType := upload.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h.Set("Content-Type", contentType)

	part, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, upload.Content); err != nil {
		return err
	}
	return mw.Close()
}
