package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"tennis-sim/internal/models"
)

const (
	playersCollection = "players"
	matchesCollection = "matches"
	runsCollection    = "runs"
)

// FirestoreStore keeps players, history and runs in Google Cloud Firestore,
// one document per entity.
type FirestoreStore struct {
	client *firestore.Client
}

// NewFirestoreStore connects to databaseID in projectID. An empty databaseID
// selects the default database; credentialsFile is optional and falls back to
// application default credentials (or FIRESTORE_EMULATOR_HOST).
func NewFirestoreStore(ctx context.Context, projectID, databaseID, credentialsFile string) (*FirestoreStore, error) {
	if databaseID == "" {
		databaseID = "(default)"
	}
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}
	return &FirestoreStore{client: client}, nil
}

func (f *FirestoreStore) Close() error {
	return f.client.Close()
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

func isAlreadyExists(err error) bool {
	return status.Code(err) == codes.AlreadyExists
}

func (f *FirestoreStore) playerDoc(id int) *firestore.DocumentRef {
	return f.client.Collection(playersCollection).Doc(strconv.Itoa(id))
}

func (f *FirestoreStore) UpsertPlayer(ctx context.Context, p *models.Player) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if _, err := f.playerDoc(p.ID).Set(ctx, p); err != nil {
		return fmt.Errorf("saving player %d: %w", p.ID, err)
	}
	return nil
}

func (f *FirestoreStore) GetPlayer(ctx context.Context, id int) (*models.Player, error) {
	snap, err := f.playerDoc(id).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, playerNotFound(id)
		}
		return nil, fmt.Errorf("loading player %d: %w", id, err)
	}
	var p models.Player
	if err := snap.DataTo(&p); err != nil {
		return nil, fmt.Errorf("decoding player %d: %w", id, err)
	}
	return &p, nil
}

func (f *FirestoreStore) ListPlayers(ctx context.Context, q PlayerQuery) ([]*models.Player, error) {
	query := f.client.Collection(playersCollection).Query
	if q.BornAfter != nil {
		query = query.Where("dateOfBirth", ">", *q.BornAfter)
	}
	iter := query.Documents(ctx)
	defer iter.Stop()

	var players []*models.Player
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("listing players: %w", err)
		}
		var p models.Player
		if err := snap.DataTo(&p); err != nil {
			return nil, fmt.Errorf("decoding player %s: %w", snap.Ref.ID, err)
		}
		players = append(players, &p)
	}
	// Ranking with unranked players last cannot be expressed as a Firestore order.
	return selectPlayers(players, q), nil
}

func (f *FirestoreStore) AddMatch(ctx context.Context, m *models.MatchArchive) error {
	if err := m.Validate(); err != nil {
		return err
	}
	if _, err := f.client.Collection(matchesCollection).Doc(m.ID).Create(ctx, m); err != nil {
		if isAlreadyExists(err) {
			return fmt.Errorf("match %s %w", m.ID, ErrAlreadyExists)
		}
		return fmt.Errorf("saving match %s: %w", m.ID, err)
	}
	return nil
}

func (f *FirestoreStore) ListMatches(ctx context.Context, playerID int, span DateRange) ([]models.MatchArchive, error) {
	var matches []models.MatchArchive
	for _, field := range []string{"winnerId", "loserId"} {
		query := f.client.Collection(matchesCollection).Where(field, "==", playerID)
		if !span.From.IsZero() {
			query = query.Where("date", ">=", span.From)
		}
		if !span.To.IsZero() {
			query = query.Where("date", "<", span.To)
		}
		found, err := f.queryMatches(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("listing matches of player %d: %w", playerID, err)
		}
		matches = append(matches, found...)
	}
	return selectMatches(matches, playerID, span), nil
}

func (f *FirestoreStore) queryMatches(ctx context.Context, query firestore.Query) ([]models.MatchArchive, error) {
	iter := query.Documents(ctx)
	defer iter.Stop()

	var matches []models.MatchArchive
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			return matches, nil
		}
		if err != nil {
			return nil, err
		}
		var m models.MatchArchive
		if err := snap.DataTo(&m); err != nil {
			return nil, fmt.Errorf("decoding match %s: %w", snap.Ref.ID, err)
		}
		matches = append(matches, m)
	}
}

func (f *FirestoreStore) runDoc(id string) *firestore.DocumentRef {
	return f.client.Collection(runsCollection).Doc(id)
}

func (f *FirestoreStore) CreateRun(ctx context.Context, r *models.Run) error {
	now := time.Now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now
	return f.ImportRun(ctx, r)
}

// ImportRun stores r with its original timestamps.
func (f *FirestoreStore) ImportRun(ctx context.Context, r *models.Run) error {
	if err := checkRunID(r.ID); err != nil {
		return err
	}
	if _, err := f.runDoc(r.ID).Create(ctx, r); err != nil {
		if isAlreadyExists(err) {
			return fmt.Errorf("run %s %w", r.ID, ErrAlreadyExists)
		}
		return fmt.Errorf("saving run %s: %w", r.ID, err)
	}
	return nil
}

func (f *FirestoreStore) GetRun(ctx context.Context, id string) (*models.Run, error) {
	snap, err := f.runDoc(id).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, runNotFound(id)
		}
		return nil, fmt.Errorf("loading run %s: %w", id, err)
	}
	var r models.Run
	if err := snap.DataTo(&r); err != nil {
		return nil, fmt.Errorf("decoding run %s: %w", id, err)
	}
	return &r, nil
}

func (f *FirestoreStore) ListRuns(ctx context.Context) ([]*models.Run, error) {
	iter := f.client.Collection(runsCollection).OrderBy("createdAt", firestore.Desc).Documents(ctx)
	defer iter.Stop()

	var runs []*models.Run
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("listing runs: %w", err)
		}
		var r models.Run
		if err := snap.DataTo(&r); err != nil {
			return nil, fmt.Errorf("decoding run %s: %w", snap.Ref.ID, err)
		}
		runs = append(runs, &r)
	}
	sortRuns(runs)
	return runs, nil
}

func (f *FirestoreStore) DeleteRun(ctx context.Context, id string) error {
	if _, err := f.runDoc(id).Delete(ctx, firestore.Exists); err != nil {
		if isNotFound(err) {
			return runNotFound(id)
		}
		return fmt.Errorf("deleting run %s: %w", id, err)
	}
	return nil
}
