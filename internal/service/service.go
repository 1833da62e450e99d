// Package service implements the user list operations on top of a backing store
// that keeps the whole collection as one serialized JSON array.
//
// Every operation reads the collection in full and, when it changes it, writes it back in full.
// Unless the Service is given a serializing executor, nothing coordinates concurrent
// operations: two overlapping mutations may overwrite each other's result.
package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/thoas/go-funk"

	"github.com/patric-chuzhbe/userlist/internal/db/storage"
	"github.com/patric-chuzhbe/userlist/internal/logger"
	"github.com/patric-chuzhbe/userlist/internal/models"
	"github.com/patric-chuzhbe/userlist/internal/writer"
)

type collectionKeeper interface {
	ReadCollection(ctx context.Context) ([]byte, error)
	WriteCollection(ctx context.Context, data []byte) error
	RemoveCollection(ctx context.Context) error
}

type pinger interface {
	Ping(ctx context.Context) error
}

type storageWithPing interface {
	collectionKeeper
	pinger
}

type defaultsFetcher interface {
	FetchUsers(ctx context.Context) (models.Users, error)
}

type executor interface {
	Do(ctx context.Context, operation writer.Operation) error
}

// ErrFetchDefaults is returned by List when the collection is absent
// and the default one could not be downloaded.
var ErrFetchDefaults = errors.New("unable to fetch the default user list")

// errAbsentCollection covers both a missing and an unparsable collection.
var errAbsentCollection = errors.New("the user collection is absent or malformed")

type Service struct {
	db       storageWithPing
	fetcher  defaultsFetcher
	executor executor
}

// New builds a Service. A nil executor runs operations inline, without any coordination.
func New(
	db storageWithPing,
	fetcher defaultsFetcher,
	executor executor,
) *Service {
	if executor == nil {
		executor = writer.Inline{}
	}

	return &Service{
		db:       db,
		fetcher:  fetcher,
		executor: executor,
	}
}

// List returns the persisted collection. When it is absent or malformed, the default
// collection is fetched from the remote source, persisted and returned.
func (s *Service) List(ctx context.Context) (models.Users, error) {
	var result models.Users

	err := s.executor.Do(ctx, func(ctx context.Context) error {
		users, err := s.readUsers(ctx)
		if err == nil {
			result = users
			return nil
		}
		if !errors.Is(err, errAbsentCollection) {
			return err
		}

		logger.Log.Debugln("fetching the default user list", "reason", err)

		users, err = s.fetcher.FetchUsers(ctx)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrFetchDefaults, err)
		}
		users = onlyObjects(users)

		if err := s.writeUsers(ctx, users); err != nil {
			return err
		}
		result = users

		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// Create appends partial with a new id: the id of the last record plus one, or 1.
//
// Unlike List, an absent or malformed collection is not replaced by the remote default:
// it is replaced by a collection holding only the new record, with id 1.
// Both behaviors are kept as they are until the product owner decides otherwise.
func (s *Service) Create(ctx context.Context, partial models.User) (models.StatusResponse, error) {
	var result models.StatusResponse

	err := s.executor.Do(ctx, func(ctx context.Context) error {
		users, err := s.readUsers(ctx)
		if err != nil {
			if !errors.Is(err, errAbsentCollection) {
				return err
			}
			logger.Log.Debugln("starting a new user list", "reason", err)
			users = models.Users{}
		}

		newID := nextID(users)

		record := partial.Clone()
		record[models.IDKey] = newID
		users = append(users, record)

		if err := s.writeUsers(ctx, users); err != nil {
			return err
		}

		result = models.StatusResponse{Status: models.StatusSuccess, ID: newID}

		return nil
	})
	if err != nil {
		return models.StatusResponse{}, err
	}

	return result, nil
}

// Update merges partial into every record whose id equals rawID.
// Nothing is created when the collection is absent.
func (s *Service) Update(ctx context.Context, rawID string, partial models.User) (models.StatusResponse, error) {
	id := models.ParseID(rawID)
	idValue := models.IDValue(id, rawID)

	var result models.StatusResponse

	err := s.executor.Do(ctx, func(ctx context.Context) error {
		users, err := s.readUsers(ctx)
		if err != nil {
			if !errors.Is(err, errAbsentCollection) {
				return err
			}
			result = models.StatusResponse{Status: models.StatusNoFilePatch, ID: idValue}
			return nil
		}

		for _, usr := range users {
			if usr.HasID(id) {
				usr.Merge(partial)
				usr[models.IDKey] = idValue
			}
		}

		if err := s.writeUsers(ctx, users); err != nil {
			return err
		}

		result = models.StatusResponse{Status: models.StatusSuccess, ID: idValue}

		return nil
	})
	if err != nil {
		return models.StatusResponse{}, err
	}

	return result, nil
}

// Remove drops every record whose id equals rawID. Removing an unknown id is not an error.
func (s *Service) Remove(ctx context.Context, rawID string) (models.StatusResponse, error) {
	id := models.ParseID(rawID)

	var result models.StatusResponse

	err := s.executor.Do(ctx, func(ctx context.Context) error {
		users, err := s.readUsers(ctx)
		if err != nil {
			if !errors.Is(err, errAbsentCollection) {
				return err
			}
			result = models.StatusResponse{Status: models.StatusNoFile}
			return nil
		}

		kept := funk.Filter([]models.User(users), func(usr models.User) bool {
			return !usr.HasID(id)
		}).([]models.User)

		if err := s.writeUsers(ctx, kept); err != nil {
			return err
		}

		result = models.StatusResponse{Status: models.StatusSuccess, ID: models.IDValue(id, rawID)}

		return nil
	})
	if err != nil {
		return models.StatusResponse{}, err
	}

	return result, nil
}

// RemoveAll deletes the backing collection.
func (s *Service) RemoveAll(ctx context.Context) (models.StatusResponse, error) {
	var result models.StatusResponse

	err := s.executor.Do(ctx, func(ctx context.Context) error {
		err := s.db.RemoveCollection(ctx)
		if errors.Is(err, storage.ErrNoCollection) {
			result = models.StatusResponse{Status: models.StatusNoFile}
			return nil
		}
		if err != nil {
			return err
		}

		result = models.StatusResponse{Status: models.StatusFileDeleted}

		return nil
	})
	if err != nil {
		return models.StatusResponse{}, err
	}

	return result, nil
}

// Ping checks the health of the backing store.
func (s *Service) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *Service) readUsers(ctx context.Context) (models.Users, error) {
	data, err := s.db.ReadCollection(ctx)
	if errors.Is(err, storage.ErrNoCollection) {
		return nil, fmt.Errorf("%w: %w", errAbsentCollection, err)
	}
	if err != nil {
		return nil, err
	}

	users, err := decodeUsers(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errAbsentCollection, err)
	}

	return users, nil
}

func (s *Service) writeUsers(ctx context.Context, users []models.User) error {
	data, err := encodeUsers(users)
	if err != nil {
		return err
	}

	return s.db.WriteCollection(ctx, data)
}

// decodeUsers accepts exactly one JSON array of objects.
func decodeUsers(data []byte) (models.Users, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()

	var users models.Users
	if err := decoder.Decode(&users); err != nil {
		return nil, err
	}
	if users == nil {
		return nil, errors.New("the user collection is not an array")
	}
	for i, usr := range users {
		if usr == nil {
			return nil, fmt.Errorf("the user collection element %d is not an object", i)
		}
	}
	if _, err := decoder.Token(); err != io.EOF {
		return nil, errors.New("unexpected data after the user collection")
	}

	return users, nil
}

func encodeUsers(users []models.User) ([]byte, error) {
	if users == nil {
		users = []models.User{}
	}

	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(users); err != nil {
		return nil, err
	}

	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// onlyObjects drops the elements that are not objects, so that what gets stored reads back intact.
func onlyObjects(users models.Users) models.Users {
	kept := make(models.Users, 0, len(users))
	for _, usr := range users {
		if usr == nil {
			logger.Log.Debugln("skipping a default user that is not an object")
			continue
		}
		kept = append(kept, usr)
	}

	return kept
}

// nextID is the id of the last record plus one, or 1 for an empty collection.
// When the last record has no numeric id, the highest numeric id in the collection is used.
func nextID(users models.Users) any {
	if len(users) == 0 {
		return int64(1)
	}

	last, ok := users[len(users)-1].ID()
	if !ok {
		last = 0
		for _, usr := range users {
			if id, ok := usr.ID(); ok && id > last {
				last = id
			}
		}
	}

	return models.IDValue(last+1, "")
}
