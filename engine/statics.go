package engine

import (
	"context"

	"github.com/teranos/wikibase/client"
	"github.com/teranos/wikibase/logger"
	"github.com/teranos/wikibase/statement"
)

// MergeItems folds one item into another, redirecting the source.
func MergeItems(ctx context.Context, c *client.Client, from, to string, ignoreConflicts ...string) error {
	_, err := c.MergeItems(ctx, from, to, ignoreConflicts)
	return err
}

// DeletePage deletes an entity's page with a reason.
func DeletePage(ctx context.Context, c *client.Client, title, reason string) error {
	_, err := c.DeletePage(ctx, title, reason)
	return err
}

// DeleteStatements removes statements by their server ids against a
// revision.
func DeleteStatements(ctx context.Context, c *client.Client, revision int64, claimIDs ...string) error {
	_, err := c.RemoveClaims(ctx, claimIDs, revision)
	return err
}

// Rollback reverts the last user's consecutive edits on one page.
func Rollback(ctx context.Context, c *client.Client, title, user string) error {
	_, err := c.Rollback(ctx, title, user)
	return err
}

// ItemInstance pairs a loaded entity id with an engine bound to it.
type ItemInstance struct {
	ID     string
	Engine *Engine
}

// GenerateItemInstances loads a batch of items and returns engines bound
// to each, sharing one transport.
func GenerateItemInstances(ctx context.Context, c *client.Client, ids ...string) ([]ItemInstance, error) {
	out := make([]ItemInstance, 0, len(ids))
	for _, id := range ids {
		raw, err := c.GetEntity(ctx, id)
		if err != nil {
			return nil, err
		}
		entity, err := statement.ParseEntity(raw)
		if err != nil {
			return nil, err
		}
		eng := &Engine{
			client:        c,
			entity:        entity,
			entityID:      entity.ID,
			writeRequired: true,
			log:           logger.Named("engine"),
		}
		out = append(out, ItemInstance{ID: entity.ID, Engine: eng})
	}
	return out, nil
}
