package main

import (
	"log"
	"os"

	"github.com/volunhub/volunhub/core"
	"github.com/volunhub/volunhub/core/user"
	inmemdb "github.com/volunhub/volunhub/storage/inmem"
)

var logger *log.Logger

// Manages the local user directory. It opens the same file-backed store the
// API server uses, so changes are visible on the server's next open. Only
// useful in local identity mode; in keycloak mode accounts live in the
// provider's admin console.
func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	db, err := inmemdb.OpenFile(core.Conf.DirectoryPath)
	errAndDie(err)

	// start CLI
	cli := commandLine{
		usrSvc: user.NewService(inmemdb.NewUserRepository(db)),
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
