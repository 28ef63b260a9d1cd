package main

import (
	"fmt"
)

func (cli *commandLine) addReviewer(chatID int64, name, email string) error {
	rev, err := cli.members.AddReviewer(chatID, name, email)
	if err != nil {
		return err
	}
	fmt.Printf("reviewer %d (%s) registered\n", rev.ID, rev.Name)
	return nil
}
