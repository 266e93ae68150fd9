package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"

	"recstore/btree"
	"recstore/cli"
	"recstore/db"

	"github.com/go-faker/faker/v4"
	log "github.com/sirupsen/logrus"
)

var (
	dataFolder              *string
	degree                  *int
	shouldReset, shouldSeed *bool
	seedNumRecords          *int
	verbose                 *bool
)

func eraseDataFolder() {
	err := os.RemoveAll(*dataFolder)
	if err != nil {
		log.Fatal(err)
	}
}

func seedDatabaseWithTestRecords(d *db.DB) {
	values := make([]string, *seedNumRecords)
	for i := range values {
		values[i] = faker.Sentence()
	}
	if _, err := d.AddAll(values); err != nil {
		log.WithError(err).Fatal("seeding failed")
	}
	log.WithField("records", *seedNumRecords).Info("seeded database")
}

func main() {
	setupFlags()

	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	if *verbose {
		log.SetLevel(log.DebugLevel)
		btree.Log.SetLevel(log.DebugLevel)
	}

	if *shouldReset {
		eraseDataFolder()
	}

	d, err := db.Open(db.Options{Dir: *dataFolder, Degree: *degree, Logger: log.StandardLogger()})
	if err != nil {
		log.Fatal(err)
	}

	if *shouldSeed {
		seedDatabaseWithTestRecords(d)
	}

	scanner := bufio.NewScanner(os.Stdin)
	demo := cli.NewCli(scanner, os.Stdout, d)
	demo.Start()

	if err := d.Close(); err != nil {
		log.Fatal(err)
	}
}

func setupFlags() {
	dataFolder = flag.String("data", "demo", "Directory holding the snapshot file.")
	degree = flag.Int("degree", db.DefaultDegree, "Minimum degree of the B-tree (at least 2).")
	shouldReset = flag.Bool("reset", false, "Reset the database by erasing its folder before startup.")
	shouldSeed = flag.Bool("seed", false, "Seed the database using records created with go-faker.")
	seedNumRecords = flag.Int("records", 1000, "Amount of records to seed the database with upon startup.")
	verbose = flag.Bool("verbose", false, "Log every mutation and every split or collapse of the root.")
	flag.Usage = func() {
		fmt.Println("\nRecord store CLI\n\nArguments:")
		flag.PrintDefaults()
	}
	flag.Parse()
}
