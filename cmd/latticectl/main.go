// latticectl imports accelerator lattice files, prints and exports
// element tables, and serves the HTTP viewer.
//
// Usage examples:
//
//	latticectl -import fodo.lte -format lte -name FODO
//	latticectl -list
//	latticectl -table <id>
//	latticectl -survey-plot survey.png -table <id>
//	latticectl -serve
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/tomerten/latticeconstructor/api"
	"github.com/tomerten/latticeconstructor/internal/config"
	"github.com/tomerten/latticeconstructor/internal/latticedb"
	"github.com/tomerten/latticeconstructor/internal/monitor"
	"github.com/tomerten/latticeconstructor/internal/version"
	"github.com/tomerten/latticeconstructor/lattice"
	"github.com/tomerten/latticeconstructor/parse"
)

var (
	configPath = flag.String("config", config.DefaultConfigPath, "Path to the config file")
	dbPath     = flag.String("db", "", "SQLite database path (overrides config)")

	importFile = flag.String("import", "", "Lattice file to import")
	format     = flag.String("format", "", "Lattice format: lte or madx (overrides config default)")
	name       = flag.String("name", "", "Lattice name override for -import")

	list        = flag.Bool("list", false, "List stored lattices")
	tableID     = flag.String("table", "", "Print the element table of a stored lattice")
	surveyID    = flag.String("survey", "", "Print survey statistics of a stored lattice as JSON")
	surveyPlot  = flag.String("survey-plot", "", "Write a survey PNG for the lattice given with -table")
	synopticOut = flag.String("synoptic", "", "Write a synoptic HTML chart for the lattice given with -table")

	serve  = flag.Bool("serve", false, "Serve the HTTP API and viewer")
	listen = flag.String("listen", "", "HTTP listen address (overrides config)")

	showVersion = flag.Bool("version", false, "Print version information and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("latticectl %s (commit %s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	cfg.Apply()
	if *dbPath == "" {
		*dbPath = *cfg.DatabasePath
	}
	if *format == "" {
		*format = *cfg.DefaultFormat
	}
	if *listen == "" {
		*listen = *cfg.ListenAddr
	}

	db, err := latticedb.NewDB(*dbPath)
	if err != nil {
		log.Fatalf("failed to open lattice database: %v", err)
	}
	defer db.Close()
	store := latticedb.NewStore(db)

	ran := false
	if *importFile != "" {
		ran = true
		runImport(store)
	}
	if *list {
		ran = true
		runList(store)
	}
	if *tableID != "" {
		ran = true
		runTable(store)
	}
	if *surveyID != "" {
		ran = true
		runSurvey(store)
	}
	if *serve {
		ran = true
		runServe(db, store)
	}
	if !ran {
		flag.Usage()
		os.Exit(2)
	}
}

func runImport(store *latticedb.Store) {
	res, err := parse.File(*importFile, *format)
	if err != nil {
		log.Fatalf("import failed: %v", err)
	}

	b := lattice.NewBuilder()
	if err := res.Apply(b); err != nil {
		log.Fatalf("import failed: %v", err)
	}
	table, err := b.BuildTable()
	if err != nil {
		log.Fatalf("import failed: %v", err)
	}

	latticeName := *name
	if latticeName == "" {
		latticeName = b.Name()
	}
	id, err := store.SaveLattice(b, latticedb.Meta{
		Name:         latticeName,
		SourceFormat: *format,
		SourceFile:   *importFile,
	})
	if err != nil {
		log.Fatalf("failed to store lattice: %v", err)
	}
	log.Printf("imported %s: id=%s elements=%d length=%.3f m", *importFile, id, len(table.Rows), table.Length())
}

func runList(store *latticedb.Store) {
	metas, err := store.ListLattices()
	if err != nil {
		log.Fatalf("failed to list lattices: %v", err)
	}
	if len(metas) == 0 {
		fmt.Println("no lattices stored")
		return
	}
	fmt.Printf("%-36s %-16s %-6s %8s\n", "ID", "NAME", "FORMAT", "ELEMENTS")
	for _, m := range metas {
		fmt.Printf("%-36s %-16s %-6s %8d\n", m.LatticeID, m.Name, m.SourceFormat, m.Elements)
	}
}

func loadTable(store *latticedb.Store, id string) *lattice.Table {
	b, _, err := store.GetLattice(id)
	if err != nil {
		log.Fatalf("failed to load lattice: %v", err)
	}
	table, err := b.BuildTable()
	if err != nil {
		log.Fatalf("failed to build table: %v", err)
	}
	return table
}

func runTable(store *latticedb.Store) {
	table := loadTable(store, *tableID)
	fmt.Print(table.Format())

	if *surveyPlot != "" {
		if err := monitor.SurveyPlot(table, *surveyPlot); err != nil {
			log.Fatalf("failed to write survey plot: %v", err)
		}
		log.Printf("wrote survey plot to %s", *surveyPlot)
	}
	if *synopticOut != "" {
		f, err := os.Create(*synopticOut)
		if err != nil {
			log.Fatalf("failed to create %s: %v", *synopticOut, err)
		}
		defer f.Close()
		if err := monitor.RenderSynoptic(f, table); err != nil {
			log.Fatalf("failed to render synoptic: %v", err)
		}
		log.Printf("wrote synoptic chart to %s", *synopticOut)
	}
}

func runSurvey(store *latticedb.Store) {
	table := loadTable(store, *surveyID)
	survey, err := table.Survey()
	if err != nil {
		log.Fatalf("failed to compute survey: %v", err)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(survey); err != nil {
		log.Fatalf("failed to encode survey: %v", err)
	}
}

func runServe(db *latticedb.DB, store *latticedb.Store) {
	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mux := http.NewServeMux()

	// mount the admin debugging routes (tailSQL UI and backup)
	if err := db.AttachAdminRoutes(mux); err != nil {
		log.Fatalf("failed to attach admin routes: %v", err)
	}

	apiMux := api.NewServer(store).ServeMux()
	mux.Handle("/api/", http.StripPrefix("/api", apiMux))
	mux.Handle("/", apiMux)

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Printf("got request %q", r.URL.Path)
		mux.ServeHTTP(w, r)
	})

	server := &http.Server{
		Addr:    *listen,
		Handler: h,
	}

	wg.Add(1)
	go func() {
		defer wg.Done()

		go func() {
			log.Printf("listening on %s", *listen)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}
	}()

	wg.Wait()
	log.Printf("graceful shutdown complete")
}
