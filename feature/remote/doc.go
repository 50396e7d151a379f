// Package remote implements the remote copies of the diary that the sync
// engine compares against.
//
// # Kinds
//
//   - s3: one object per date in a MinIO/S3 bucket, "<prefix><YYYY-MM-DD>.txt".
//     Uploads are supported.
//   - local: one file per date in a directory, accessed through afero.
//     Uploads are supported and replace the file atomically. A Watcher can
//     sync a date as soon as its file changes.
//   - gdrive: plain files or Google Docs in a Drive folder. Read only.
//     Authorize stores the OAuth token used by NewDriveService.
//
// A missing object or file means the remote has nothing for that date.
// New builds the configured kind.
package remote
