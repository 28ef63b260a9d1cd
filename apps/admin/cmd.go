package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"

	"github.com/aktamov/davomat/core/course"
	"github.com/aktamov/davomat/core/member"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	db      *sql.DB
	courses *course.Service
	members *member.Service
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [ARGS] - run a migration command (up, down, status, ...)")
	fmt.Println("  addreviewer -chat CHAT_ID -name NAME [-email EMAIL] - register an active reviewer")
	fmt.Println("  cleanup - purge enrollments abandoned during setup")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addReviewerCmd := flag.NewFlagSet("addreviewer", flag.ExitOnError)
	addReviewerChat := addReviewerCmd.Int64("chat", 0, "The reviewer's chat id.")
	addReviewerName := addReviewerCmd.String("name", "", "The reviewer's display name.")
	addReviewerEmail := addReviewerCmd.String("email", "", "Optional alert email address.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "addreviewer":
		if err := addReviewerCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addReviewerChat == 0 || *addReviewerName == "" {
			addReviewerCmd.Usage()
			return errHelp
		}
		return cli.addReviewer(*addReviewerChat, *addReviewerName, *addReviewerEmail)
	case "cleanup":
		return cli.cleanup()
	default:
		cli.printUsage()
		return errHelp
	}
}
