package main

import (
	"context"

	"github.com/trezcool/ratiba/core"
)

func (cli *commandLine) clearUserData(uname string) error {
	ctx := context.Background()
	usr, err := cli.usrRepo.GetUserByUsername(ctx, core.CleanString(uname, true /* lower */))
	if err != nil {
		return err
	}
	return cli.studyRepo.DeleteUserData(ctx, usr.Username)
}
