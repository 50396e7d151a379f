package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"diary-sync/core/utils"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
)

const googleDocMimeType = "application/vnd.google-apps.document"

// DriveSource reads entries from a Google Drive folder. A date is either a
// plain file "<YYYY-MM-DD><ext>" or a Google Doc titled "<YYYY-MM-DD>",
// which is exported as plain text.
type DriveSource struct {
	svc      *drive.Service
	folderID string
	ext      string
}

// NewDriveSource creates a read-only remote over folderID.
func NewDriveSource(svc *drive.Service, folderID, ext string) *DriveSource {
	if ext == "" {
		ext = ".txt"
	}
	return &DriveSource{svc: svc, folderID: folderID, ext: ext}
}

// Name implements reconcile.Source.
func (s *DriveSource) Name() string {
	return "gdrive:" + s.folderID
}

func escapeName(name string) string {
	return strings.ReplaceAll(name, "'", "\\'")
}

func isDriveNotFound(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusNotFound
}

func (s *DriveSource) find(ctx context.Context, date time.Time) (*drive.File, error) {
	day := utils.FormatDate(date)
	q := fmt.Sprintf("(name='%s' or name='%s') and '%s' in parents and trashed=false",
		escapeName(day+s.ext), escapeName(day), s.folderID)

	list, err := s.svc.Files.List().Q(q).Fields("files(id, name, mimeType)").Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	for _, f := range list.Files {
		if f.Name == day+s.ext || (f.Name == day && f.MimeType == googleDocMimeType) {
			return f, nil
		}
	}
	return nil, nil
}

// Get implements reconcile.Source.
func (s *DriveSource) Get(ctx context.Context, date time.Time) (string, bool, error) {
	f, err := s.find(ctx, date)
	if err != nil {
		return "", false, fmt.Errorf("failed to find %s on gdrive: %w", utils.FormatDate(date), err)
	}
	if f == nil {
		return "", false, nil
	}

	var resp *http.Response
	if f.MimeType == googleDocMimeType {
		resp, err = s.svc.Files.Export(f.Id, "text/plain").Context(ctx).Download()
	} else {
		resp, err = s.svc.Files.Get(f.Id).Context(ctx).Download()
	}
	if err != nil {
		if isDriveNotFound(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to download %s: %w", f.Name, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s: %w", f.Name, err)
	}
	return normalizeExport(string(data)), true, nil
}

// normalizeExport strips the byte order mark and CRLF line endings that
// Docs exports carry.
func normalizeExport(text string) string {
	text = strings.TrimPrefix(text, "\ufeff")
	return strings.ReplaceAll(text, "\r\n", "\n")
}

// ListDates implements reconcile.Source.
func (s *DriveSource) ListDates(ctx context.Context) ([]time.Time, error) {
	q := fmt.Sprintf("'%s' in parents and trashed=false", s.folderID)
	seen := make(map[time.Time]struct{})
	var dates []time.Time

	err := s.svc.Files.List().Q(q).Fields("nextPageToken, files(id, name, mimeType)").Pages(ctx, func(list *drive.FileList) error {
		for _, f := range list.Files {
			d, ok := utils.DateFromFilename(f.Name, s.ext)
			if !ok && f.MimeType == googleDocMimeType {
				d, ok = utils.DateFromFilename(f.Name, "")
			}
			if !ok {
				continue
			}
			if _, dup := seen[d]; !dup {
				seen[d] = struct{}{}
				dates = append(dates, d)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list gdrive folder %s: %w", s.folderID, err)
	}
	return dates, nil
}
