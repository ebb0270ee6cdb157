package main

import (
	"fmt"
	"log"
	"os"

	echoapi "github.com/volunhub/volunhub/apps/api/echo"
	"github.com/volunhub/volunhub/core"
	"github.com/volunhub/volunhub/core/event"
	"github.com/volunhub/volunhub/core/user"
	emailsvc "github.com/volunhub/volunhub/services/email"
	identitysvc "github.com/volunhub/volunhub/services/identity"
	logsvc "github.com/volunhub/volunhub/services/logger"
	gqldb "github.com/volunhub/volunhub/storage/graphql"
	inmemdb "github.com/volunhub/volunhub/storage/inmem"
)

func main() {
	conf := core.Conf

	// set up logger
	std := log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	var logger core.Logger
	if conf.RollbarToken != "" {
		rl := logsvc.NewRollbarLogger(std, conf)
		rl.Enable(!conf.Debug)
		logger = rl
	} else {
		logger = core.NewStdLogger(std)
	}

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	// set up mailer
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService()
	} else {
		mailSvc = emailsvc.NewSendgridService(logger)
	}

	// set up storage; the external GraphQL server owns persistence, the
	// file-backed local directory is shared with the admin CLI
	db, err := inmemdb.OpenFile(conf.DirectoryPath)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening directory store: %v", err), err)
	}
	usrSvc := user.NewService(inmemdb.NewUserRepository(db))

	var evtRepo event.Repository
	if conf.Backend.URL != "" {
		evtRepo = gqldb.NewEventRepository(conf.Backend.URL, conf.Backend.Timeout, conf.Backend.CacheTTL)
	} else {
		evtRepo = inmemdb.NewEventRepository(db)
	}
	evtSvc := event.NewService(evtRepo, mailSvc, logger)

	// set up identity provider
	var identSvc user.IdentityService
	if conf.Identity.Mode == "keycloak" {
		identSvc = identitysvc.NewKeycloakService(conf)
	} else {
		identSvc = identitysvc.NewLocalService(conf.FrontendBaseURL, usrSvc)
		if err := seedUsers(usrSvc); err != nil {
			logger.Fatal(fmt.Sprintf("seeding dev users: %v", err), err)
		}
	}

	// start API server
	app := echoapi.NewServer(
		&echoapi.Options{
			Address:  conf.Server.Address(),
			Logger:   logger,
			UserSvc:  usrSvc,
			EventSvc: evtSvc,
			IdentSvc: identSvc,
		},
	)
	app.Start()
}
