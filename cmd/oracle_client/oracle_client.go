package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/c-bata/go-prompt"
	"github.com/golang/glog"

	"github.com/leisurelyrcxf/tsoracle/cmd"
	"github.com/leisurelyrcxf/tsoracle/consts"
	"github.com/leisurelyrcxf/tsoracle/errors"
	"github.com/leisurelyrcxf/tsoracle/oracle/impl"
	"github.com/leisurelyrcxf/tsoracle/utils"
)

func completer(d prompt.Document) []prompt.Suggest {
	s := []prompt.Suggest{
		{Text: "fetch", Description: "fetch [count]"},
		{Text: "ff", Description: "ff timestamp, fast forward"},
		{Text: "invalidate", Description: "invalidate timestamps of the namespace"},
		{Text: "quit", Description: "quit terminal"},
		{Text: "exit", Description: "quit terminal"},
	}
	return prompt.FilterHasPrefix(s, d.GetWordBeforeCursor(), true)
}

func execute(ctx context.Context, c *impl.Client, parts []string) {
	switch parts[0] {
	case "fetch":
		count := int64(1)
		if len(parts) >= 2 {
			var err error
			if count, err = strconv.ParseInt(parts[1], 10, 64); err != nil {
				fmt.Printf("invalid count '%s'\n", parts[1])
				return
			}
		}
		r, err := c.GetFreshTimestamps(ctx, count)
		if err != nil {
			fmt.Printf("fetch failed: %v\n", err)
			return
		}
		if r.Size() == 1 {
			fmt.Println(r.Lower)
			return
		}
		fmt.Println(r)
	case "ff":
		if len(parts) < 2 {
			fmt.Println("invalid ff command, use 'ff timestamp'")
			return
		}
		ts, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			fmt.Printf("invalid timestamp '%s'\n", parts[1])
			return
		}
		if err := c.FastForwardTimestamp(ctx, ts); err != nil {
			fmt.Printf("fast forward failed: %v\n", err)
			return
		}
		fmt.Println("OK")
	case "invalidate":
		if err := c.InvalidateTimestamps(ctx); err != nil {
			if errors.IsNotSupportedErr(err) {
				fmt.Println("invalidate is only supported by in-memory oracles")
				return
			}
			fmt.Printf("invalidate failed: %v\n", err)
			return
		}
		fmt.Println("OK")
	default:
		fmt.Printf("cmd '%s' not supported\n", parts[0])
	}
}

func main() {
	flagHost := flag.String("host", "127.0.0.1", "host")
	flagNamespace := flag.String("namespace", consts.DefaultNamespace, "namespace")
	cmd.RegisterPortFlags(consts.DefaultOracleServerPort)
	utils.LogToStderr()
	cmd.ParseFlags()

	c, err := impl.NewClient(fmt.Sprintf("%s:%d", *flagHost, *cmd.FlagPort), *flagNamespace)
	if err != nil {
		glog.Fatalf("can't create oracle client: %v", err)
		return
	}
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if args := flag.Args(); len(args) > 0 {
		execute(ctx, c, args)
		return
	}

	executor := func(promptText string) {
		for _, parts := range utils.SplitCommands(promptText) {
			if parts[0] == "quit" || parts[0] == "exit" || parts[0] == "q" {
				os.Exit(0)
			}
			execute(ctx, c, parts)
		}
	}
	p := prompt.New(
		executor,
		completer,
		prompt.OptionPrefix("> "),
		prompt.OptionTitle("tsoracle client"),
	)
	p.Run()
}
