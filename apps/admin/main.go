package main

import (
	"log"
	"os"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/storage/jsondb"
)

var logger *log.Logger // todo: logger service

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf := core.NewConfig()

	// set up storage
	db, err := jsondb.Open(conf)
	errAndDie(err)

	// start CLI
	cli := commandLine{
		usrRepo:   jsondb.NewUserRepository(db),
		studyRepo: jsondb.NewStudyRepository(db),
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
