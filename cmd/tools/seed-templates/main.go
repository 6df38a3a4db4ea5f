// cmd/tools/seed-templates/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"notification-dispatcher/internal/common/config"
	"notification-dispatcher/internal/common/database"
	"notification-dispatcher/internal/models"
	"notification-dispatcher/internal/store"
	"notification-dispatcher/pkg/catalog"
)

var catalogPath string

func main() {
	seedCmd := flag.NewFlagSet("seed", flag.ExitOnError)
	listCmd := flag.NewFlagSet("list", flag.ExitOnError)
	validateCmd := flag.NewFlagSet("validate", flag.ExitOnError)

	for _, fs := range []*flag.FlagSet{seedCmd, validateCmd} {
		fs.StringVar(&catalogPath, "path", "", "Path to a template catalog (defaults to the built-in catalog)")
	}
	migrate := seedCmd.Bool("migrate", false, "Apply schema migrations before seeding")
	eventType := listCmd.String("event", "", "Only list templates for this event type")

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	switch os.Args[1] {
	case "seed":
		seedCmd.Parse(os.Args[2:])
		cat, err := loadCatalog()
		if err != nil {
			fail("Error loading catalog: %v", err)
		}
		if err := cat.Validate(); err != nil {
			fail("Catalog validation failed: %v", err)
		}
		st, closeDB := openStore(*migrate)
		defer closeDB()
		n, err := seed(ctx, st, cat)
		if err != nil {
			fail("Error seeding templates: %v", err)
		}
		fmt.Printf("Seeded %d templates.\n", n)

	case "list":
		listCmd.Parse(os.Args[2:])
		st, closeDB := openStore(false)
		defer closeDB()
		if err := list(ctx, st, *eventType); err != nil {
			fail("Error listing templates: %v", err)
		}

	case "validate":
		validateCmd.Parse(os.Args[2:])
		cat, err := loadCatalog()
		if err != nil {
			fail("Error loading catalog: %v", err)
		}
		if err := cat.Validate(); err != nil {
			fail("Catalog validation failed: %v", err)
		}
		fmt.Printf("Catalog validation passed. Found %d templates.\n", len(cat.Templates))

	case "help":
		fallthrough
	default:
		help()
	}
}

func loadCatalog() (*catalog.TemplateCatalog, error) {
	if catalogPath == "" {
		return catalog.Default()
	}
	return catalog.Load(catalogPath)
}

func openStore(migrate bool) (*store.Store, func()) {
	cfg, err := config.Load()
	if err != nil {
		fail("Error loading config: %v", err)
	}
	pg, err := database.NewPostgres(cfg.Database.Postgres)
	if err != nil {
		fail("Error connecting to postgres: %v", err)
	}
	if migrate {
		if err := database.Migrate(pg.DB); err != nil {
			fail("Error applying migrations: %v", err)
		}
	}
	return store.New(pg.DB), func() { pg.Close() }
}

// seed upserts every catalog entry, so running it twice leaves one row per
// (event_type, notification_type).
func seed(ctx context.Context, st *store.Store, cat *catalog.TemplateCatalog) (int, error) {
	count := 0
	for _, t := range cat.Models() {
		if err := st.UpsertTemplate(ctx, t); err != nil {
			return count, fmt.Errorf("%s/%s: %w", t.EventType, t.Channel, err)
		}
		fmt.Printf("  %-24s %-6s %s\n", t.EventType, t.Channel, t.ID)
		count++
	}
	return count, nil
}

func list(ctx context.Context, st *store.Store, eventType string) error {
	var (
		templates []*models.NotificationTemplate
		err       error
	)
	if eventType != "" {
		templates, err = st.TemplatesByEventType(ctx, eventType)
	} else {
		templates, err = st.ListTemplates(ctx, store.Page{Limit: 1000})
	}
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "EVENT TYPE\tCHANNEL\tPRIORITY\tACTIVE\tID")
	for _, t := range templates {
		fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%s\n", t.EventType, t.Channel, t.Priority, t.Active, t.ID)
	}
	return w.Flush()
}

func fail(format string, args ...interface{}) {
	fmt.Printf(format+"\n", args...)
	os.Exit(1)
}

func help() {
	fmt.Print(`
Usage: seed-templates <command> [flags]

Commands:
  seed      Upsert the catalog templates into the database
  list      List stored templates
  validate  Validate a template catalog without touching the database
  help      Show this help message

Examples:
  seed-templates seed -migrate
  seed-templates seed -path configs/templates.json
  seed-templates list -event RESERVATION_CONFIRMED
  seed-templates validate -path configs/templates.json

Use 'seed-templates <command> -h' for more information about a command.
` + "\n")
}
