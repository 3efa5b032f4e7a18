package engine

import (
	"context"
	"sort"
	"strconv"

	"github.com/teranos/wikibase/errors"
	"github.com/teranos/wikibase/fastrun"
	"github.com/teranos/wikibase/logger"
	"github.com/teranos/wikibase/statement"
)

// Label returns the entity's label in a language, "" when absent.
func (e *Engine) Label(lang string) string { return e.entity.Labels[lang] }

// Description returns the entity's description in a language.
func (e *Engine) Description(lang string) string { return e.entity.Descriptions[lang] }

// Aliases returns the entity's aliases in a language.
func (e *Engine) Aliases(lang string) []string { return e.entity.Aliases[lang] }

// Sitelink returns the entity's link for a site and whether it exists.
func (e *Engine) Sitelink(site string) (statement.Sitelink, bool) {
	sl, ok := e.entity.Sitelinks[site]
	return sl, ok
}

// PropertyList returns the sorted property ids present on the entity.
func (e *Engine) PropertyList() []string {
	pids := make([]string, 0, len(e.entity.Claims))
	for pid := range e.entity.Claims {
		pids = append(pids, pid)
	}
	sort.Strings(pids)
	return pids
}

// PageID returns the entity's page id, 0 before the first write.
func (e *Engine) PageID() int64 { return e.entity.PageID }

// LastRevID returns the revision the engine last saw, enabling optimistic
// external sequencing.
func (e *Engine) LastRevID() int64 { return e.entity.LastRevID }

// SetLabel sets the label for a language. Under fast-run, a label the
// cache already knows is a no-op that does not mark the engine dirty.
func (e *Engine) SetLabel(ctx context.Context, lang, value string) error {
	changed, err := e.languageDataChanged(ctx, []string{value}, lang, fastrun.KindLabel)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	e.entity.Labels[lang] = value
	e.termsDirty = true
	return nil
}

// SetDescription sets the description for a language, with the same
// fast-run short-circuit as SetLabel.
func (e *Engine) SetDescription(ctx context.Context, lang, value string) error {
	changed, err := e.languageDataChanged(ctx, []string{value}, lang, fastrun.KindDescription)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	e.entity.Descriptions[lang] = value
	e.termsDirty = true
	return nil
}

// SetAliases sets or extends the aliases for a language.
func (e *Engine) SetAliases(ctx context.Context, lang string, values []string, appendMode bool) error {
	changed, err := e.languageDataChanged(ctx, values, lang, fastrun.KindAlias)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	if appendMode {
		existing := map[string]bool{}
		for _, a := range e.entity.Aliases[lang] {
			existing[a] = true
		}
		for _, v := range values {
			if !existing[v] {
				e.entity.Aliases[lang] = append(e.entity.Aliases[lang], v)
			}
		}
	} else {
		e.entity.Aliases[lang] = values
	}
	e.termsDirty = true
	return nil
}

// SetSitelink sets the entity's link for a site.
func (e *Engine) SetSitelink(site, title string, badges ...string) {
	e.entity.Sitelinks[site] = statement.Sitelink{Site: site, Title: title, Badges: badges}
	e.termsDirty = true
}

func (e *Engine) languageDataChanged(ctx context.Context, values []string, lang, kind string) (bool, error) {
	if !e.fastRun || e.fastRunContainer == nil || e.entityID == "" {
		return true, nil
	}
	return e.fastRunContainer.LanguageDataChanged(ctx, e.entityID, values, lang, kind)
}

// Update merges additional proposed statements into the engine and
// recomputes the write plan.
func (e *Engine) Update(ctx context.Context, newData []*statement.Statement, appendPids ...string) error {
	if e.searchOnly {
		return errors.New("search-only engines carry no write plan")
	}
	for _, pid := range appendPids {
		if e.appendProps == nil {
			e.appendProps = map[string]bool{}
		}
		e.appendProps[pid] = true
	}
	e.data = append(e.data, cloneStatements(newData)...)

	if !e.writeRequired && e.fastRunContainer != nil {
		required, err := e.fastRunContainer.WriteRequired(ctx, e.data, e.appendProps, e.entityID, e.fastRunCaseFold)
		if err != nil {
			return err
		}
		if !required {
			return nil
		}
		e.writeRequired = true
		if err := e.bind(ctx); err != nil {
			return err
		}
	}

	e.computePlan()
	return nil
}

// WriteOptions shape one wbeditentity call.
type WriteOptions struct {
	Summary          string
	EntityType       string // default "item"; only used on create
	PropertyDatatype string // required when creating a property
	BaseRev          int64  // 0 skips edit-conflict detection
}

// Write pushes the computed plan through wbeditentity and rebinds the
// engine to the server's returned document. Under fast-run, a clean engine
// returns without touching the server.
func (e *Engine) Write(ctx context.Context, opts WriteOptions) (string, error) {
	if e.searchOnly {
		return "", errors.New("search-only engines cannot write")
	}
	if !e.writeRequired && !e.termsDirty {
		e.log.Debugw("write skipped", logger.FieldEntityID, e.entityID)
		return e.entityID, nil
	}

	if e.plan != nil {
		e.entity.SetStatements(e.plan)
	}

	doc := e.entity.JSON()
	params := map[string]string{}
	if e.entityID != "" {
		params["id"] = e.entityID
	} else {
		entityType := opts.EntityType
		if entityType == "" {
			entityType = "item"
		}
		params["new"] = entityType
		if entityType == "property" {
			if opts.PropertyDatatype == "" {
				return "", errors.New("creating a property requires a datatype")
			}
			doc["datatype"] = opts.PropertyDatatype
		}
	}
	if opts.Summary != "" {
		params["summary"] = opts.Summary
	}
	if opts.BaseRev > 0 {
		params["baserevid"] = strconv.FormatInt(opts.BaseRev, 10)
	}

	raw, err := e.client.EditEntity(ctx, params, doc)
	if err != nil {
		return "", err
	}
	entity, err := statement.ParseEntity(raw)
	if err != nil {
		return "", errors.Wrap(err, "parsing wbeditentity response")
	}
	e.entity = entity
	e.entityID = entity.ID
	e.termsDirty = false
	e.log.Infow("entity written",
		logger.FieldEntityID, e.entityID,
		logger.FieldRevID, entity.LastRevID,
	)
	return e.entityID, nil
}
