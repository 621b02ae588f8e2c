package googleDriveApi

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"path/filepath"
	"time"

	"github.com/KotFed0t/investa/config"
	"github.com/KotFed0t/investa/utils"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

const (
	downloadLinkTemplate = "https://drive.google.com/file/d/%s/view"
	folderMimeType       = "application/vnd.google-apps.folder"
	reportFolderName     = "investa-reports"
	listPageSize         = 100
)

// GoogleDriveApi keeps every uploaded report inside a dedicated folder, so
// retention cleanup never touches files outside it.
type GoogleDriveApi struct {
	srv      *drive.Service
	cfg      *config.Config
	folderID string
}

func New(ctx context.Context, cfg *config.Config) *GoogleDriveApi {
	srv, err := drive.NewService(ctx, option.WithCredentialsFile(cfg.GoogleDrive.CredentialsFile))
	if err != nil {
		slog.Error("failed on drive.NewService")
		panic(err)
	}
	return &GoogleDriveApi{srv: srv, cfg: cfg}
}

func (a *GoogleDriveApi) UploadFile(ctx context.Context, reader io.Reader, filename string) (downloadLink string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "GoogleDriveApi.UploadFile"

	slog.Debug("UploadFile start", slog.String("rqID", rqID), slog.String("op", op), slog.String("filename", filename))

	folderID, err := a.reportFolderID(ctx)
	if err != nil {
		slog.Error("failed on resolving report folder", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return "", err
	}

	fileMeta := &drive.File{
		Name:     filename,
		MimeType: mime.TypeByExtension(filepath.Ext(filename)),
		Parents:  []string{folderID},
	}

	uploadedFile, err := a.srv.Files.
		Create(fileMeta).
		Media(reader).
		Context(ctx).
		Do()
	if err != nil {
		slog.Error("failed on uploading file to google drive", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return "", err
	}

	perm := &drive.Permission{
		Type: "anyone",
		Role: "reader",
	}

	_, err = a.srv.Permissions.Create(uploadedFile.Id, perm).Context(ctx).Do()
	if err != nil {
		slog.Error("failed on creating permission to uploaded file in google drive", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return "", err
	}

	slog.Debug("UploadFile completed", slog.String("rqID", rqID), slog.String("op", op), slog.String("fileID", uploadedFile.Id))

	return fmt.Sprintf(downloadLinkTemplate, uploadedFile.Id), nil
}

// DeleteOldFiles removes reports older than the configured TTL from the
// report folder.
func (a *GoogleDriveApi) DeleteOldFiles(ctx context.Context) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "GoogleDriveApi.DeleteOldFiles"

	slog.Debug("DeleteOldFiles start", slog.String("rqID", rqID), slog.String("op", op))

	folderID, err := a.reportFolderID(ctx)
	if err != nil {
		slog.Error("failed on resolving report folder", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	cutoff := time.Now().Add(-1 * a.cfg.GoogleDrive.FileTTL)
	deletedFiles := 0
	pageToken := ""

	for {
		call := a.srv.Files.List().
			Q(fmt.Sprintf("'%s' in parents and trashed = false", folderID)).
			Fields("nextPageToken, files(id, createdTime)").
			PageSize(listPageSize).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		page, err := call.Do()
		if err != nil {
			slog.Error("failed on listing report folder", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
			return err
		}

		for _, id := range expiredFileIDs(page.Files, cutoff) {
			if err := a.srv.Files.Delete(id).Context(ctx).Do(); err != nil {
				slog.Error(
					"failed delete file",
					slog.String("rqID", rqID),
					slog.String("op", op),
					slog.String("err", err.Error()),
					slog.String("fileID", id),
				)
				continue
			}
			deletedFiles++
		}

		pageToken = page.NextPageToken
		if pageToken == "" {
			break
		}
	}

	if err := a.srv.Files.EmptyTrash().Context(ctx).Do(); err != nil {
		slog.Error("failed empty trash", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
	}

	slog.Info("delete old files done", slog.String("rqID", rqID), slog.Int("deletedFiles", deletedFiles))

	return nil
}

// reportFolderID finds the report folder, creating it on first use.
func (a *GoogleDriveApi) reportFolderID(ctx context.Context) (string, error) {
	if a.folderID != "" {
		return a.folderID, nil
	}

	query := fmt.Sprintf("mimeType = '%s' and name = '%s' and trashed = false", folderMimeType, reportFolderName)
	found, err := a.srv.Files.List().Q(query).Fields("files(id)").PageSize(1).Context(ctx).Do()
	if err != nil {
		return "", err
	}

	if len(found.Files) > 0 {
		a.folderID = found.Files[0].Id
		return a.folderID, nil
	}

	folder, err := a.srv.Files.Create(&drive.File{
		Name:     reportFolderName,
		MimeType: folderMimeType,
	}).Context(ctx).Do()
	if err != nil {
		return "", err
	}

	a.folderID = folder.Id
	return a.folderID, nil
}

// expiredFileIDs picks the files created before the cutoff. Files with an
// unparseable creation time are kept.
func expiredFileIDs(files []*drive.File, cutoff time.Time) []string {
	ids := make([]string, 0, len(files))

	for _, f := range files {
		createdTime, err := time.Parse(time.RFC3339, f.CreatedTime)
		if err != nil {
			slog.Error(
				"failed parse time",
				slog.String("fileID", f.Id),
				slog.String("createdTime", f.CreatedTime),
				slog.String("err", err.Error()),
			)
			continue
		}

		if createdTime.Before(cutoff) {
			ids = append(ids, f.Id)
		}
	}

	return ids
}
