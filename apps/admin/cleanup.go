package main

import (
	"fmt"
)

// cleanup deletes setup courses whose invite was never used within the
// retention window, plus member rows left without any course.
func (cli *commandLine) cleanup() error {
	stale, err := cli.courses.AbandonedSetup()
	if err != nil {
		return err
	}

	var purged, removed int
	for _, c := range stale {
		orphaned, err := cli.courses.Purge(c)
		if err != nil {
			return err
		}
		purged++
		if orphaned {
			if err = cli.members.Remove(c.MemberID); err != nil {
				return err
			}
			removed++
		}
	}
	fmt.Printf("purged %d abandoned enrollments, removed %d members\n", purged, removed)
	return nil
}
