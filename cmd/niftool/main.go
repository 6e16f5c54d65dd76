// niftool is a CLI utility for inspecting and converting NIF documents.
package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/Faultbox/nifkit/internal/config"
	"github.com/Faultbox/nifkit/internal/logger"
)

func main() {
	flag.Usage = printUsage
	config.ParseFlags()

	if flag.NArg() < 1 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.LoggerOptions()); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	command := flag.Arg(0)
	args := flag.Args()[1:]
	logger.Debug("running command", zap.String("command", command), zap.Strings("args", args))

	switch command {
	case "info":
		err = cmdInfo(args)
	case "dump":
		err = cmdDump(args)
	case "import":
		err = cmdImport(cfg, args)
	case "export", "convert":
		err = cmdExport(cfg, args)
	case "roundtrip":
		err = cmdRoundTrip(cfg, args)
	case "kf":
		err = cmdKF(args)
	case "preview":
		err = cmdPreview(cfg, args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		logger.Sync()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`niftool - NIF document inspection and conversion utility

Usage:
  niftool [flags] <command> [options]

Commands:
  info <file.nif>                     Show version, roots and block counts
  dump <file.nif>                     Print the block tree
  import <file.nif>                   Import into a scene and print its objects
  export <in.nif> <out.nif>           Import, then export with the export settings
  roundtrip <file.nif>                Check that a document survives import and export
  kf <file.nif> <out.kf>              Write the animation companion of a document
  preview <file.nif> <out.glb>        Import and write a binary glTF preview

Flags:`)
	flag.PrintDefaults()
	fmt.Println(`
Examples:
  niftool info door.nif
  niftool -realign none import door.nif
  niftool -nif-version 20.0.0.5 export door.nif door_new.nif
  niftool -scale 10 preview door.nif door.glb`)
}
