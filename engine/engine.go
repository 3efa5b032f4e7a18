// Package engine orchestrates one entity's read-resolve-merge-write cycle:
// bind or resolve the target entity, verify core-property integrity,
// compute the statement write plan, and push it through the action API.
package engine

import (
	"context"

	"go.uber.org/zap"

	"github.com/teranos/wikibase/client"
	"github.com/teranos/wikibase/config"
	"github.com/teranos/wikibase/errors"
	"github.com/teranos/wikibase/fastrun"
	"github.com/teranos/wikibase/logger"
	"github.com/teranos/wikibase/merge"
	"github.com/teranos/wikibase/resolve"
	"github.com/teranos/wikibase/statement"
)

// Engine owns one entity's mutable document. Instances are not safe for
// concurrent use; the process-wide caches it leans on are.
type Engine struct {
	client *client.Client
	log    *zap.SugaredLogger

	entityID string
	entity   *statement.Entity
	data     []*statement.Statement

	createNew   bool
	searchOnly  bool
	appendProps map[string]bool

	refMode               statement.RefMode
	refHandler            merge.RefHandler
	goodRefs              *merge.GoodRefPolicy
	keepGoodRefStatements bool

	coreProps          map[string]bool
	corePropThreshold  float64
	constraintPID      string
	distinctValuesQID  string
	mappingRelationPID string
	exactMatchQID      string

	fastRun             bool
	fastRunBaseFilter   string
	fastRunUseRefs      bool
	fastRunCaseFold     bool
	fastRunContainer    *fastrun.Container

	// endpoint overrides applied when the engine builds its own client
	apiURL, sparqlURL, wikibaseURL, conceptBaseURI string

	plan          []*statement.Statement
	writeRequired bool
	termsDirty    bool
}

// Option configures engine construction.
type Option func(*Engine)

// WithClient binds the engine to an existing transport; engines sharing a
// client share its login session and edit token.
func WithClient(c *client.Client) Option { return func(e *Engine) { e.client = c } }

// WithEntityID binds to an existing entity, skipping resolution.
func WithEntityID(id string) Option { return func(e *Engine) { e.entityID = id } }

// WithNew forces the create-new path; statement data is required.
func WithNew() Option { return func(e *Engine) { e.createNew = true } }

// WithData supplies the proposed statements.
func WithData(data ...*statement.Statement) Option {
	return func(e *Engine) { e.data = append(e.data, data...) }
}

// WithAppendValue marks properties whose statements append to existing
// runs instead of replacing them.
func WithAppendValue(pids ...string) Option {
	return func(e *Engine) {
		if e.appendProps == nil {
			e.appendProps = map[string]bool{}
		}
		for _, pid := range pids {
			e.appendProps[pid] = true
		}
	}
}

// WithSearchOnly resolves the entity without computing a write plan.
func WithSearchOnly() Option { return func(e *Engine) { e.searchOnly = true } }

// WithFastRun routes change detection through the shared fast-run cache.
func WithFastRun(baseFilter string, useRefs, caseInsensitive bool) Option {
	return func(e *Engine) {
		e.fastRun = true
		e.fastRunBaseFilter = baseFilter
		e.fastRunUseRefs = useRefs
		e.fastRunCaseFold = caseInsensitive
	}
}

// WithRefMode sets the engine-wide reference mode.
func WithRefMode(mode statement.RefMode) Option { return func(e *Engine) { e.refMode = mode } }

// WithRefHandler supplies the handler for the custom reference mode.
func WithRefHandler(h merge.RefHandler) Option { return func(e *Engine) { e.refHandler = h } }

// WithGoodRefs overrides the default good-reference policy with explicit
// constraint blocks.
func WithGoodRefs(blocks []merge.GoodRefBlock) Option {
	return func(e *Engine) { e.goodRefs = &merge.GoodRefPolicy{Blocks: blocks} }
}

// WithKeepGoodRefStatements shields well-referenced existing statements
// from the replace sweep.
func WithKeepGoodRefStatements() Option {
	return func(e *Engine) { e.keepGoodRefStatements = true }
}

// WithCoreProps overrides the auto-discovered core-id property set.
func WithCoreProps(pids ...string) Option {
	return func(e *Engine) {
		e.coreProps = map[string]bool{}
		for _, pid := range pids {
			e.coreProps[pid] = true
		}
	}
}

// WithCorePropMatchThreshold overrides the integrity-check ratio.
func WithCorePropMatchThreshold(t float64) Option {
	return func(e *Engine) { e.corePropThreshold = t }
}

// WithEndpoints overrides the configured endpoint bindings. Empty strings
// keep the configured values.
func WithEndpoints(mediawikiAPIURL, sparqlEndpointURL, wikibaseURL, conceptBaseURI string) Option {
	return func(e *Engine) {
		e.apiURL = mediawikiAPIURL
		e.sparqlURL = sparqlEndpointURL
		e.wikibaseURL = wikibaseURL
		e.conceptBaseURI = conceptBaseURI
	}
}

// WithConstraintIDs lets alternate wikibases self-describe core-id
// discovery and mapping-relation filtering. Empty strings keep the
// configured values.
func WithConstraintIDs(propertyConstraintPID, distinctValuesQID, mappingRelationPID, exactMatchQID string) Option {
	return func(e *Engine) {
		e.constraintPID = propertyConstraintPID
		e.distinctValuesQID = distinctValuesQID
		e.mappingRelationPID = mappingRelationPID
		e.exactMatchQID = exactMatchQID
	}
}

// New constructs an engine and runs the resolution state machine up to the
// write plan: bind or resolve the entity, check integrity, diff the
// statements. Write then pushes the plan.
func New(ctx context.Context, opts ...Option) (*Engine, error) {
	e := &Engine{
		writeRequired: true,
		log:           logger.Named("engine"),
	}
	for _, opt := range opts {
		opt(e)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if e.constraintPID == "" {
		e.constraintPID = cfg.Constraints.PropertyConstraintPID
	}
	if e.distinctValuesQID == "" {
		e.distinctValuesQID = cfg.Constraints.DistinctValuesConstraintQID
	}

	if e.client == nil {
		clientCfg := *cfg
		if e.apiURL != "" {
			clientCfg.Endpoints.MediawikiAPIURL = e.apiURL
		}
		if e.sparqlURL != "" {
			clientCfg.Endpoints.SPARQLEndpointURL = e.sparqlURL
		}
		if e.wikibaseURL != "" {
			clientCfg.Endpoints.WikibaseURL = e.wikibaseURL
		}
		if e.conceptBaseURI != "" {
			clientCfg.Endpoints.ConceptBaseURI = e.conceptBaseURI
		}
		e.client, err = client.New(&clientCfg)
		if err != nil {
			return nil, err
		}
	}

	if e.createNew && len(e.data) == 0 {
		return nil, errors.New("creating a new entity requires statement data")
	}
	if e.entityID == "" && len(e.data) == 0 {
		return nil, errors.Wrap(errors.ErrIDMissing, "engine")
	}
	e.data = cloneStatements(e.data)
	if e.refMode == statement.RefModeCustom && e.refHandler == nil {
		return nil, errors.New("custom reference mode requires a reference handler")
	}

	if e.fastRun {
		e.fastRunContainer = fastrun.For(fastrun.Key{
			BaseFilter: e.fastRunBaseFilter,
			Endpoint:   e.client.SPARQLURL(),
			UseRefs:    e.fastRunUseRefs,
		}, e.client)

		if !e.createNew && !e.searchOnly {
			required, err := e.fastRunContainer.WriteRequired(ctx, e.data, e.appendProps, e.entityID, e.fastRunCaseFold)
			if err != nil {
				return nil, err
			}
			if !required {
				e.writeRequired = false
				e.entity = statement.NewEntity()
				e.entity.ID = e.entityID
				e.log.Debugw("fast-run: no write required", logger.FieldEntityID, e.entityID)
				return e, nil
			}
		}
	}

	if err := e.bind(ctx); err != nil {
		return nil, err
	}
	if e.searchOnly {
		return e, nil
	}

	e.computePlan()
	return e, nil
}

// bind attaches the engine to its target entity: explicit id, create-new,
// or resolution through the core-id properties.
func (e *Engine) bind(ctx context.Context) error {
	if e.entityID != "" && !e.createNew {
		return e.load(ctx, e.entityID)
	}

	if err := e.ensureCoreProps(ctx); err != nil {
		return err
	}
	resolver := &resolve.Resolver{
		Client:             e.client,
		CoreProps:          e.coreProps,
		MappingRelationPID: e.mappingRelationPID,
		ExactMatchQID:      e.exactMatchQID,
	}
	qid, err := resolver.Resolve(ctx, e.data)
	if err != nil {
		return err
	}

	if e.createNew {
		if qid != "" {
			// The data already describes an existing entity; creating a
			// duplicate needs a human decision.
			return &errors.ManualInterventionError{
				Candidates: map[string][]string{"": {qid}},
			}
		}
		e.entity = statement.NewEntity()
		return nil
	}

	if qid == "" {
		e.createNew = true
		e.entity = statement.NewEntity()
		e.log.Debugw("no existing entity matched, creating new")
		return nil
	}

	if err := e.load(ctx, qid); err != nil {
		return err
	}
	return resolve.CheckIntegrity(e.entity, e.data, e.coreProps, e.corePropThreshold)
}

func (e *Engine) load(ctx context.Context, qid string) error {
	raw, err := e.client.GetEntity(ctx, qid)
	if err != nil {
		return err
	}
	entity, err := statement.ParseEntity(raw)
	if err != nil {
		return err
	}
	e.entity = entity
	e.entityID = entity.ID
	return nil
}

func (e *Engine) ensureCoreProps(ctx context.Context) error {
	if e.coreProps != nil {
		return nil
	}
	props, err := resolve.CoreProps(ctx, e.client, e.constraintPID, e.distinctValuesQID)
	if err != nil {
		return err
	}
	e.coreProps = props
	return nil
}

// cloneStatements detaches proposed statements from the caller; the plan
// mutates its entries in place.
func cloneStatements(in []*statement.Statement) []*statement.Statement {
	out := make([]*statement.Statement, len(in))
	for i, s := range in {
		out[i] = s.Clone()
	}
	return out
}

func (e *Engine) computePlan() {
	e.plan = merge.Plan(e.entity.Statements(), e.data, merge.Options{
		AppendProps:           e.appendProps,
		GlobalRefMode:         e.refMode,
		RefHandler:            e.refHandler,
		GoodRefs:              e.goodRefs,
		KeepGoodRefStatements: e.keepGoodRefStatements,
	})
}

// EntityID returns the bound entity id; empty until a create-new write
// lands.
func (e *Engine) EntityID() string { return e.entityID }

// Entity exposes the engine's working document.
func (e *Engine) Entity() *statement.Entity { return e.entity }

// Plan returns the computed statement write plan.
func (e *Engine) Plan() []*statement.Statement { return e.plan }

// WriteRequired reports whether Write would contact the server.
func (e *Engine) WriteRequired() bool { return e.writeRequired || e.termsDirty }
