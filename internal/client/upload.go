package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"
	"strings"
	"sync"

	"github.com/farkhanisturkia/mapsReactGo/internal/logging"
)

const (
	opUploadCSV = "upload csv"

	// CSVField is the multipart field name the ingestion endpoint reads.
	CSVField = "csv"
)

// UploadPhase is the lifecycle position of the Uploader.
type UploadPhase int

const (
	NoFile UploadPhase = iota
	FileSelected
	Uploading
	UploadSucceeded
	UploadFailed
)

func (p UploadPhase) String() string {
	switch p {
	case NoFile:
		return "no_file"
	case FileSelected:
		return "file_selected"
	case Uploading:
		return "uploading"
	case UploadSucceeded:
		return "succeeded"
	case UploadFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// UploadState is a snapshot of the Uploader.
type UploadState struct {
	Phase UploadPhase
	// File is the selected file, nil when none is selected.
	File File
	// Message is the service's message after a successful upload.
	Message string
	Err     string
}

// Busy reports whether an upload is in flight.
func (s UploadState) Busy() bool { return s.Phase == Uploading }

// Uploader validates a user-selected CSV file and posts it to the ingestion
// endpoint as multipart form data.
type Uploader struct {
	sender Sender
	url    string
	log    logging.Logger

	mu    sync.Mutex
	state UploadState
}

// NewUploader creates an Uploader posting to uploadURL.
func NewUploader(sender Sender, uploadURL string, opts ...Option) *Uploader {
	s := applyOptions(opts)
	return &Uploader{
		sender: sender,
		url:    uploadURL,
		log:    s.log.With(logging.String("component", "csv_uploader")),
	}
}

// SelectFile offers f for upload. A CSV file replaces the current selection
// and resets any previous outcome; anything else clears the selection and
// records ErrNotCSV. A nil f is ignored. Returns ErrBusy while uploading.
func (u *Uploader) SelectFile(f File) error {
	if f == nil {
		return nil
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	if u.state.Phase == Uploading {
		return ErrBusy
	}
	if !IsCSV(f) {
		u.state = UploadState{Phase: NoFile, Err: ErrNotCSV.Error()}
		return ErrNotCSV
	}
	u.state = UploadState{Phase: FileSelected, File: f}
	return nil
}

// Submit uploads the selected file.
//
// Errors:
//   - ErrBusy when an upload is already in flight; nothing else happens.
//   - ErrNoFile when no file is selected; no request is sent.
//   - *Error of KindTransport, KindStatus or KindDecode when the exchange fails.
func (u *Uploader) Submit(ctx context.Context) error {
	file, err := u.begin()
	if err != nil {
		if errors.Is(err, ErrBusy) {
			u.log.Debug(ctx, "upload ignored, previous upload in flight")
		}
		return err
	}

	settled := false
	defer func() {
		if !settled {
			u.settle("", errInterrupted)
		}
	}()

	msg, err := u.upload(ctx, file)
	u.settle(msg, err)
	settled = true

	if err != nil {
		u.log.Warn(ctx, "csv upload failed", logging.String("file", file.Name()), logging.Err(err))
		return err
	}
	u.log.Info(ctx, "csv uploaded", logging.String("file", file.Name()), logging.String("message", msg))
	return nil
}

func (u *Uploader) begin() (File, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.state.Phase == Uploading {
		return nil, ErrBusy
	}
	if u.state.File == nil {
		u.state.Err = ErrNoFile.Error()
		return nil, ErrNoFile
	}
	u.state.Phase = Uploading
	u.state.Err = ""
	u.state.Message = ""
	return u.state.File, nil
}

func (u *Uploader) settle(msg string, err error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if err != nil {
		u.state.Phase = UploadFailed
		u.state.Err = err.Error()
		u.state.Message = ""
		return
	}
	u.state.Phase = UploadSucceeded
	u.state.Message = msg
	u.state.Err = ""
}

func (u *Uploader) upload(ctx context.Context, file File) (string, error) {
	body, contentType, err := encodeMultipart(file)
	if err != nil {
		return "", &Error{Kind: KindTransport, Op: opUploadCSV, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.url, body)
	if err != nil {
		return "", &Error{Kind: KindTransport, Op: opUploadCSV, Err: err}
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	var result struct {
		Message string `json:"message"`
	}
	if err := exchange(u.sender, req, opUploadCSV, &result); err != nil {
		return "", err
	}
	return result.Message, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// encodeMultipart builds a form body holding file under CSVField.
func encodeMultipart(file File) (*bytes.Buffer, string, error) {
	rc, err := file.Open()
	if err != nil {
		return nil, "", fmt.Errorf("open %s: %w", file.Name(), err)
	}
	defer rc.Close() //nolint:errcheck

	contentType := file.ContentType()
	if contentType == "" {
		contentType = csvMediaType
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		CSVField, quoteEscaper.Replace(filepath.Base(file.Name()))))
	header.Set("Content-Type", contentType)

	part, err := mw.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("create part: %w", err)
	}
	if _, err := io.Copy(part, rc); err != nil {
		return nil, "", fmt.Errorf("read %s: %w", file.Name(), err)
	}
	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}
	return &buf, mw.FormDataContentType(), nil
}

// State returns the uploader's current snapshot.
func (u *Uploader) State() UploadState {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.state
}

// Busy reports whether an upload is in flight.
func (u *Uploader) Busy() bool {
	return u.State().Busy()
}
