package service

import (
	"fmt"
	"strconv"

	"github.com/Steel-tech/fabtrack/pkg/models"
	"github.com/Steel-tech/fabtrack/pkg/storage"
)

// Catalog is the ordered, read-only list of production stages. It is loaded
// once at construction; the catalog is reference data and does not change
// while the engine runs.
type Catalog struct {
	stages []models.Stage // sorted by position
	byID   map[int64]models.Stage
	byName map[string]models.Stage
}

// LoadCatalog reads the stage catalog from the store.
func LoadCatalog(store storage.Store) (*Catalog, error) {
	stages, err := store.ListStages()
	if err != nil {
		return nil, fmt.Errorf("load stage catalog: %w", err)
	}
	if len(stages) == 0 {
		return nil, fmt.Errorf("stage catalog is empty; run migrations first")
	}
	c := &Catalog{
		stages: stages,
		byID:   make(map[int64]models.Stage, len(stages)),
		byName: make(map[string]models.Stage, len(stages)),
	}
	for _, st := range stages {
		c.byID[st.ID] = st
		c.byName[st.Name] = st
	}
	return c, nil
}

// NewCatalog builds a catalog directly from stages, for callers that already
// hold them (tests, mostly). Stages must be sorted by position.
func NewCatalog(stages []models.Stage) *Catalog {
	c := &Catalog{
		stages: stages,
		byID:   make(map[int64]models.Stage, len(stages)),
		byName: make(map[string]models.Stage, len(stages)),
	}
	for _, st := range stages {
		c.byID[st.ID] = st
		c.byName[st.Name] = st
	}
	return c
}

// Stages returns the catalog in position order.
func (c *Catalog) Stages() []models.Stage {
	return c.stages
}

// Len returns the total stage count.
func (c *Catalog) Len() int {
	return len(c.stages)
}

// StageByID looks up a stage by id.
func (c *Catalog) StageByID(id int64) (models.Stage, error) {
	st, ok := c.byID[id]
	if !ok {
		return models.Stage{}, &NotFoundError{Kind: "stage", ID: strconv.FormatInt(id, 10)}
	}
	return st, nil
}

// StageByName looks up a stage by exact name.
func (c *Catalog) StageByName(name string) (models.Stage, error) {
	st, ok := c.byName[name]
	if !ok {
		return models.Stage{}, &NotFoundError{Kind: "stage", ID: name}
	}
	return st, nil
}
