package drive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"cloudstore/internal/database/sqlc"
)

// PublicLink grants unauthenticated read access to one file.
type PublicLink struct {
	Path  string
	Token string
	URL   string
}

// IssueLink attaches a fresh public token to one of the owner's files,
// replacing any previous token.
func (s *Service) IssueLink(ctx context.Context, ownerID int64, relative string) (*PublicLink, error) {
	p, err := filePath(ownerID, relative)
	if err != nil {
		return nil, err
	}
	file, err := s.ownedFile(ctx, p, ErrNotFound)
	if err != nil {
		return nil, err
	}

	updated, err := s.database.IssuePublicToken(ctx, p.String())
	if err != nil {
		return nil, fmt.Errorf("issuing public token: %w", err)
	}
	if updated == nil || !updated.PublicToken.Valid {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, p)
	}
	s.forgetToken(file)

	token := updated.PublicToken.String
	s.logger.Info("public link issued", "path", p.String())
	return &PublicLink{
		Path:  updated.Path,
		Token: token,
		URL:   s.linkURL(token),
	}, nil
}

// RevokeLink clears the public token of one of the owner's files. Files
// without a token are left as they are.
func (s *Service) RevokeLink(ctx context.Context, ownerID int64, relative string) error {
	p, err := filePath(ownerID, relative)
	if err != nil {
		return err
	}
	file, err := s.ownedFile(ctx, p, ErrNotFound)
	if err != nil {
		return err
	}
	if !file.PublicToken.Valid {
		return nil
	}

	if _, err := s.database.RevokePublicToken(ctx, p.String()); err != nil {
		return fmt.Errorf("revoking public token: %w", err)
	}
	s.forgetToken(file)
	s.logger.Info("public link revoked", "path", p.String())
	return nil
}

// ResolveLink returns the file a token grants access to. Unknown tokens and
// files whose content is missing fail with ErrNotFound.
func (s *Service) ResolveLink(ctx context.Context, token string) (*sqlc.File, error) {
	file, err := s.lookupToken(ctx, token)
	if err != nil {
		return nil, err
	}
	ok, err := s.blobs.Exists(ctx, file.Path)
	if err != nil {
		return nil, fmt.Errorf("checking blob: %w", err)
	}
	if !ok {
		s.inconsistent(InconsistencyMissingBlob, "path", file.Path)
		return nil, fmt.Errorf("%w: content of shared file", ErrNotFound)
	}
	return file, nil
}

// OpenLink resolves a token and opens the file for reading. The caller must
// close the reader.
func (s *Service) OpenLink(ctx context.Context, token string) (*sqlc.File, io.ReadCloser, error) {
	file, err := s.lookupToken(ctx, token)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.blobs.Open(ctx, file.Path)
	if err != nil {
		if errors.Is(err, ErrBlobNotFound) {
			s.inconsistent(InconsistencyMissingBlob, "path", file.Path)
			return nil, nil, fmt.Errorf("%w: content of shared file", ErrNotFound)
		}
		return nil, nil, fmt.Errorf("opening blob: %w", err)
	}
	return file, rc, nil
}

func (s *Service) lookupToken(ctx context.Context, token string) (*sqlc.File, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: empty token", ErrNotFound)
	}
	if s.cache != nil {
		if file, ok := s.cache.Get(token); ok {
			return file, nil
		}
	}

	before := s.evictions.Load()
	file, err := s.database.FindFileByToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("finding file by token: %w", err)
	}
	if file == nil {
		return nil, fmt.Errorf("%w: unknown token", ErrNotFound)
	}
	if s.cache != nil {
		s.cache.Add(token, file)
		if s.evictions.Load() != before {
			s.cache.Remove(token)
		}
	}
	return file, nil
}

func (s *Service) linkURL(token string) string {
	return strings.TrimRight(s.publicBaseURL, "/") + "/files/public/" + token
}
