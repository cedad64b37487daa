package main

import (
	"github.com/alecthomas/kong"
)

// version is set by ldflags during build
var version = "dev"

type CLI struct {
	Version kong.VersionFlag `short:"v" help:"Show version"`
	Server  ServerCmd        `cmd:"" help:"Run the escrow game server"`
	Play    PlayCmd          `cmd:"" help:"Play interactively in the terminal"`
	Bot     BotCmd           `cmd:"" help:"Run automated players"`
	Admin   AdminCmd         `cmd:"" help:"Lock, unlock or abort the game"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("rpsbet"),
		kong.Description("Bet-settled rock-paper-scissors escrow server and clients"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
	)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}
