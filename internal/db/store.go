package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

const (
	usersCollection    = "users"
	accountsCollection = "accounts"
)

// Client is a scoped handle on the store. A user client may only touch documents under
// users/{user}; the admin client is unrestricted.
type Client struct {
	store   *Store
	user    string
	admin   bool
	revoked atomic.Bool

	mu       sync.Mutex
	watchers map[*watcher]struct{}
}

func (s *Store) Client(user string) *Client {
	return &Client{store: s, user: user, watchers: make(map[*watcher]struct{})}
}

// Admin returns a client that bypasses ownership rules.
func (s *Store) Admin() *Client {
	return &Client{store: s, admin: true, watchers: make(map[*watcher]struct{})}
}

func (c *Client) User() string {
	return c.user
}

// UserDoc is the profile document of the client's user.
func (c *Client) UserDoc() Ref {
	return Doc(usersCollection, c.user)
}

// Collection returns the path of a collection owned by the client's user.
func (c *Client) Collection(name string) string {
	return Path(usersCollection, c.user, name)
}

func (c *Client) authorize(op, path string) error {
	if c.revoked.Load() {
		return &Error{Code: CodePermissionDenied, Op: op, Err: ErrRevoked}
	}
	if c.admin {
		return nil
	}
	if c.user == "" {
		return newError(CodePermissionDenied, op, "no signed in user")
	}
	owned := Path(usersCollection, c.user)
	if path == owned || strings.HasPrefix(path, owned+"/") {
		return nil
	}
	return newError(CodePermissionDenied, op, "%s is not readable by %s", path, c.user)
}

func (c *Client) authorizeRef(op string, ref Ref) error {
	if !validRef(ref) {
		return newError(CodeInvalidArgument, op, "invalid document path %q", ref.Path())
	}
	return c.authorize(op, ref.Path())
}

func (c *Client) authorizeCollection(op, collection string) error {
	if !validCollection(collection) {
		return newError(CodeInvalidArgument, op, "invalid collection path %q", collection)
	}
	if collection == accountsCollection && !c.admin {
		return newError(CodePermissionDenied, op, "accounts are private")
	}
	return c.authorize(op, collection)
}

// Revoke ends the client's session: live subscriptions fail with permission-denied and
// later calls are rejected.
func (c *Client) Revoke() {
	if c.revoked.Swap(true) {
		return
	}
	c.mu.Lock()
	watchers := make([]*watcher, 0, len(c.watchers))
	for w := range c.watchers {
		watchers = append(watchers, w)
	}
	c.mu.Unlock()

	for _, w := range watchers {
		w.fail(&Error{Code: CodePermissionDenied, Op: "listen " + w.collection, Err: ErrRevoked})
	}
	c.store.logger.Debug("client revoked", "user", c.user, "listeners", len(watchers))
}

func (c *Client) Revoked() bool {
	return c.revoked.Load()
}

func (c *Client) Get(ctx context.Context, ref Ref) (Document, error) {
	if err := c.authorizeRef("get", ref); err != nil {
		return Document{}, err
	}
	return c.store.get(ctx, c.store.db, ref)
}

// Exists reports whether ref names a stored document.
func (c *Client) Exists(ctx context.Context, ref Ref) (bool, error) {
	_, err := c.Get(ctx, ref)
	if IsCode(err, CodeNotFound) {
		return false, nil
	}
	return err == nil, err
}

// RunQuery executes the query once.
func (c *Client) RunQuery(ctx context.Context, collection string, preds ...Predicate) ([]Document, error) {
	if err := c.authorizeCollection("query", collection); err != nil {
		return nil, err
	}
	p, err := compile(preds)
	if err != nil {
		return nil, err
	}
	return c.store.execute(ctx, c.store.db, collection, p)
}

// Create stores fields under a generated id.
func (c *Client) Create(ctx context.Context, collection string, fields Fields) (Ref, error) {
	ref := Doc(collection, uuid.New().String())
	batch := c.Batch()
	batch.Create(ref, fields)
	if err := batch.Commit(ctx); err != nil {
		return Ref{}, err
	}
	return ref, nil
}

// Set replaces the document, creating it when missing.
func (c *Client) Set(ctx context.Context, ref Ref, fields Fields) error {
	batch := c.Batch()
	batch.Set(ref, fields)
	return batch.Commit(ctx)
}

// Update merges fields into an existing document.
func (c *Client) Update(ctx context.Context, ref Ref, fields Fields) error {
	batch := c.Batch()
	batch.Update(ref, fields)
	return batch.Commit(ctx)
}

// Delete removes the document. Deleting a missing document succeeds.
func (c *Client) Delete(ctx context.Context, ref Ref) error {
	batch := c.Batch()
	batch.Delete(ref)
	return batch.Commit(ctx)
}

func (s *Store) get(ctx context.Context, q querier, ref Ref) (Document, error) {
	rows, err := q.QueryContext(ctx, "SELECT data FROM documents WHERE collection = ? AND id = ?", ref.Collection, ref.ID)
	if err != nil {
		return Document{}, wrapError("get "+ref.Path(), err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return Document{}, wrapError("get "+ref.Path(), err)
		}
		return Document{}, newError(CodeNotFound, "get", "%s does not exist", ref.Path())
	}

	var payload string
	if err := rows.Scan(&payload); err != nil {
		return Document{}, wrapError("get "+ref.Path(), err)
	}
	var data map[string]any
	if err := json.Unmarshal([]byte(payload), &data); err != nil {
		return Document{}, wrapError("get "+ref.Path(), err)
	}
	return Document{Ref: ref, Data: data}, nil
}

func exec(ctx context.Context, tx *sql.Tx, op, statement string, args ...any) error {
	if _, err := tx.ExecContext(ctx, statement, args...); err != nil {
		return wrapError(op, err)
	}
	return nil
}
