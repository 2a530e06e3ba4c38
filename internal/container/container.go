package container

import (
	"context"
	"fmt"

	"featuregraph/adapters/excel"
	"featuregraph/adapters/postgres"
	"featuregraph/app"
	"featuregraph/internal"
	"featuregraph/internal/config"
	"featuregraph/internal/database"
	"featuregraph/internal/learn"
	"featuregraph/ports"

	"github.com/jmoiron/sqlx"
)

// Container holds the application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config

	// Infrastructure
	DB *sqlx.DB

	// Storage
	Reader *excel.DataReader
	Writer *excel.DataWriter
	Runs   ports.SearchRunRepository // nil until InitWithDatabase

	log *internal.Logger
}

// New creates a container with file storage. The database is attached
// separately since most commands never need it.
func New(cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	return &Container{
		Config: cfg,
		Reader: excel.NewDataReader(),
		Writer: excel.NewDataWriter(),
		log:    internal.DefaultLogger.WithComponent("Container"),
	}, nil
}

// InitWithDatabase attaches a connected database and its repositories
func (c *Container) InitWithDatabase(db *sqlx.DB) error {
	if db == nil {
		return fmt.Errorf("database connection cannot be nil")
	}
	c.DB = db
	c.Runs = postgres.NewSearchRunRepository(db)
	c.log.Debug("search run repository attached")
	return nil
}

// ConnectDatabase opens the configured database once. Without DATABASE_URL
// it does nothing and runs are not persisted.
func (c *Container) ConnectDatabase(ctx context.Context) error {
	if c.DB != nil || !c.Config.Database.Enabled() {
		return nil
	}
	db, err := database.Open(ctx, c.Config.Database)
	if err != nil {
		return err
	}
	return c.InitWithDatabase(db)
}

// ForestOptions translates the learn settings into forest options
func (c *Container) ForestOptions() []learn.ForestOption {
	lc := c.Config.Learn
	opts := []learn.ForestOption{
		learn.Trees(lc.Trees),
		learn.MinLeaf(lc.MinLeaf),
		learn.Workers(lc.Workers),
	}
	if lc.MaxDepth > 0 {
		opts = append(opts, learn.MaxDepth(lc.MaxDepth))
	}
	return opts
}

// SearchService builds the search service over the attached storage
func (c *Container) SearchService() *app.FeatureSearchService {
	return app.NewFeatureSearchService(c.Reader, c.Writer, c.Runs, app.WithForestOptions(c.ForestOptions()...))
}

// PreselectService builds the pre-selection service
func (c *Container) PreselectService() *app.PreselectService {
	return app.NewPreselectService(c.Reader, c.Writer)
}

// GroupingService builds the categorical grouping service
func (c *Container) GroupingService() *app.GroupingService {
	return app.NewGroupingService(c.Reader, c.Writer)
}

// Shutdown releases the database connection
func (c *Container) Shutdown() error {
	if c.DB == nil {
		return nil
	}
	err := c.DB.Close()
	c.DB = nil
	c.Runs = nil
	return err
}
