package services

import (
	"context"
	"fmt"
	"mime"
	"path"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/damacus/iron-shelf/internal/metrics"
	"github.com/damacus/iron-shelf/internal/models"
)

// Operation names used in errors, logs and metrics.
const (
	OpList   = "list"
	OpUpload = "upload"
	OpDelete = "delete"
	OpRename = "rename"
)

// RetryPolicy bounds the delete-phase retry of a rename. Backoff doubles
// after every failed attempt up to MaxBackoff.
type RetryPolicy struct {
	Attempts   int
	Backoff    time.Duration
	MaxBackoff time.Duration
}

type FileServiceOptions struct {
	// Prefix is the folder the file manager shows, e.g. "uploads/".
	Prefix  string
	URLs    PublicURLs
	Retry   RetryPolicy
	Metrics *metrics.Recorder
	Logger  zerolog.Logger

	// Now and Sleep default to the wall clock.
	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error
}

// FileService lists, uploads, deletes and renames objects in one bucket. It
// returns structured results and errors and never talks to the user.
type FileService struct {
	store   ObjectStore
	prefix  string
	urls    PublicURLs
	retry   RetryPolicy
	metrics *metrics.Recorder
	log     zerolog.Logger
	now     func() time.Time
	sleep   func(ctx context.Context, d time.Duration) error
}

func NewFileService(store ObjectStore, opts FileServiceOptions) *FileService {
	s := &FileService{
		store:   store,
		prefix:  opts.Prefix,
		urls:    opts.URLs,
		retry:   opts.Retry,
		metrics: opts.Metrics,
		log:     opts.Logger,
		now:     opts.Now,
		sleep:   opts.Sleep,
	}
	if s.retry.Attempts < 1 {
		s.retry.Attempts = 1
	}
	if s.retry.MaxBackoff < s.retry.Backoff {
		s.retry.MaxBackoff = s.retry.Backoff
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.sleep == nil {
		s.sleep = sleepContext
	}
	return s
}

// Prefix returns the configured folder.
func (s *FileService) Prefix() string {
	return s.prefix
}

// List returns the entries under prefix in store order. Folder markers (the
// prefix itself) are skipped.
func (s *FileService) List(ctx context.Context, prefix string) (entries []models.ObjectEntry, err error) {
	defer s.observe(OpList, time.Now(), &err)

	objects, err := s.store.List(ctx, prefix)
	if err != nil {
		return nil, &OpError{Op: OpList, Key: prefix, Kind: listErrorKind(err), Err: err}
	}

	entries = make([]models.ObjectEntry, 0, len(objects))
	for _, obj := range objects {
		if !strings.HasPrefix(obj.Key, prefix) || obj.Key == prefix {
			continue
		}
		entries = append(entries, s.entry(obj))
	}
	s.log.Debug().Str("prefix", prefix).Int("count", len(entries)).Msg("listed objects")
	return entries, nil
}

// Upload stores file under "<targetPrefix><unix millis>_<file name>". Two
// uploads of the same name within one millisecond share a key; the later
// one wins.
func (s *FileService) Upload(ctx context.Context, file models.PendingUpload, targetPrefix string) (entry models.ObjectEntry, err error) {
	defer s.observe(OpUpload, time.Now(), &err)

	name := baseName(file.Name)
	if name == "" {
		return models.ObjectEntry{}, &OpError{Op: OpUpload, Kind: ErrUpload, Err: ErrInvalidName}
	}

	now := s.now()
	key := fmt.Sprintf("%s%d_%s", targetPrefix, now.UnixMilli(), name)

	obj, err := s.store.Put(ctx, key, file.Body, file.Size, contentTypeFor(name, file.ContentType))
	if err != nil {
		return models.ObjectEntry{}, &OpError{Op: OpUpload, Key: key, Kind: ErrUpload, Err: err}
	}
	if obj.Size <= 0 && file.Size > 0 {
		obj.Size = file.Size
	}
	if obj.LastModified.IsZero() {
		obj.LastModified = now
	}

	s.log.Info().Str("key", key).Int64("size", obj.Size).Msg("uploaded object")
	return s.entry(obj), nil
}

// Delete removes key. Whether the key existed is left to the store. Keys
// outside the managed prefix are refused.
func (s *FileService) Delete(ctx context.Context, key string) (err error) {
	defer s.observe(OpDelete, time.Now(), &err)

	if err := s.checkManaged(key); err != nil {
		return &OpError{Op: OpDelete, Key: key, Kind: ErrDelete, Err: err}
	}
	if err := s.store.Delete(ctx, key); err != nil {
		return &OpError{Op: OpDelete, Key: key, Kind: ErrDelete, Err: err}
	}
	s.log.Info().Str("key", key).Msg("deleted object")
	return nil
}

// Rename copies oldKey to "<newPrefix><newName>" and then deletes oldKey.
// The two steps are not atomic. A failed copy aborts before anything is
// deleted. A failed delete is retried per the RetryPolicy; if it still
// fails, both keys remain and the error has Duplicate set. An existing
// object at the new key is overwritten.
func (s *FileService) Rename(ctx context.Context, oldKey, newPrefix, newName string) (entry models.ObjectEntry, err error) {
	defer s.observe(OpRename, time.Now(), &err)

	if err := s.checkManaged(oldKey); err != nil {
		return models.ObjectEntry{}, &OpError{Op: OpRename, Key: oldKey, Kind: ErrRename, Err: err}
	}
	name := strings.TrimSpace(newName)
	if name == "" || strings.Contains(name, "/") {
		return models.ObjectEntry{}, &OpError{Op: OpRename, Key: oldKey, Kind: ErrRename, Err: ErrInvalidName}
	}
	newKey := newPrefix + name
	if err := s.checkManaged(newKey); err != nil {
		return models.ObjectEntry{}, &OpError{Op: OpRename, Key: oldKey, Kind: ErrRename, Err: err}
	}
	if newKey == oldKey {
		obj, err := s.store.Stat(ctx, oldKey)
		if err != nil {
			return models.ObjectEntry{}, &OpError{Op: OpRename, Key: oldKey, Kind: ErrRename, Err: err}
		}
		return s.entry(obj), nil
	}

	obj, err := s.store.Copy(ctx, oldKey, newKey)
	if err != nil {
		return models.ObjectEntry{}, &OpError{Op: OpRename, Key: oldKey, Kind: ErrRename, Phase: PhaseCopy, Err: err}
	}

	if err := s.deleteWithRetry(ctx, oldKey); err != nil {
		s.metrics.RenameDuplicate()
		s.log.Error().Err(err).
			Str("old_key", oldKey).
			Str("new_key", newKey).
			Msg("rename copied the object but could not delete the original")
		return models.ObjectEntry{}, &OpError{
			Op:        OpRename,
			Key:       oldKey,
			Kind:      ErrRename,
			Phase:     PhaseDelete,
			Duplicate: true,
			Err:       err,
		}
	}

	if obj.Size <= 0 {
		obj = s.statOr(ctx, obj)
	}
	if obj.LastModified.IsZero() {
		obj.LastModified = s.now()
	}
	s.log.Info().Str("old_key", oldKey).Str("new_key", newKey).Msg("renamed object")
	return s.entry(obj), nil
}

func (s *FileService) deleteWithRetry(ctx context.Context, key string) error {
	backoff := s.retry.Backoff
	for attempt := 1; ; attempt++ {
		err := s.store.Delete(ctx, key)
		if err == nil {
			return nil
		}
		if attempt >= s.retry.Attempts || ctx.Err() != nil {
			return err
		}

		s.metrics.RenameDeleteRetry()
		s.log.Warn().Err(err).
			Str("key", key).
			Int("attempt", attempt).
			Dur("backoff", backoff).
			Msg("rename delete phase failed, retrying")

		if sleepErr := s.sleep(ctx, backoff); sleepErr != nil {
			return err
		}
		backoff *= 2
		if backoff > s.retry.MaxBackoff {
			backoff = s.retry.MaxBackoff
		}
	}
}

// statOr reads obj's size back from the store, since some backends do not
// report it on copy. On failure obj is returned unchanged.
func (s *FileService) statOr(ctx context.Context, obj StoredObject) StoredObject {
	stat, err := s.store.Stat(ctx, obj.Key)
	if err != nil {
		s.log.Warn().Err(err).Str("key", obj.Key).Msg("could not read renamed object size")
		return obj
	}
	if stat.LastModified.IsZero() {
		stat.LastModified = obj.LastModified
	}
	return stat
}

// checkManaged rejects keys outside the configured prefix, and the prefix
// itself.
func (s *FileService) checkManaged(key string) error {
	if !strings.HasPrefix(key, s.prefix) || key == s.prefix {
		return fmt.Errorf("%w: %q is outside %q", ErrInvalidName, key, s.prefix)
	}
	return nil
}

func (s *FileService) entry(obj StoredObject) models.ObjectEntry {
	return models.NewObjectEntry(obj.Key, obj.Size, obj.LastModified, s.prefix, s.urls.URL(obj.Key))
}

func (s *FileService) observe(op string, start time.Time, err *error) {
	s.metrics.ObserveOperation(op, *err, time.Since(start))
}

// baseName strips any directory part a browser may send with the file name.
func baseName(name string) string {
	name = strings.TrimSpace(strings.ReplaceAll(name, "\\", "/"))
	if name == "" {
		return ""
	}
	base := path.Base(name)
	if base == "." || base == "/" || base == ".." {
		return ""
	}
	return base
}

func contentTypeFor(name, declared string) string {
	if declared != "" {
		return declared
	}
	if t := mime.TypeByExtension(path.Ext(name)); t != "" {
		return t
	}
	return "application/octet-stream"
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
