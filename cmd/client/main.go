// Package main is an interactive shell for the vessel portal API.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/atinyakov/VesselPortal/internal/client"
)

var (
	version   string
	buildDate string
)

const help = `Available commands:
  me                        show your client record
  contact <field> <value>   update email, phone or address
  activity                  show your recent changes
  vessels                   list your vessels
  vessel <id>               show one vessel
  activate <id>             mark a vessel active
  deactivate <id>           mark a vessel inactive
  exit`

// repl runs the interactive shell loop until exit or end of input.
func repl(ctx context.Context, c *client.Client, in io.Reader, out io.Writer) {
	scanner := bufio.NewScanner(in)

	for {
		fmt.Fprint(out, "portal> ")
		if !scanner.Scan() {
			break
		}
		args := strings.Fields(scanner.Text())
		if len(args) == 0 {
			continue
		}
		if args[0] == "exit" {
			fmt.Fprintln(out, "Bye")
			return
		}
		if err := dispatch(ctx, c, args, out); err != nil {
			fmt.Fprintln(out, "Error:", err)
		}
	}
}

func dispatch(ctx context.Context, c *client.Client, args []string, out io.Writer) error {
	switch args[0] {
	case "help":
		fmt.Fprintln(out, help)
		return nil
	case "me":
		me, err := c.Me(ctx)
		if err != nil {
			return err
		}
		return printJSON(out, me)
	case "contact":
		if len(args) < 3 {
			fmt.Fprintln(out, "Usage: contact <email|phone|address> <value>")
			return nil
		}
		res, err := c.UpdateContact(ctx, map[string]string{args[1]: strings.Join(args[2:], " ")})
		if err != nil {
			return err
		}
		fmt.Fprintln(out, res.Message)
		return nil
	case "activity":
		entries, err := c.Activity(ctx)
		if err != nil {
			return err
		}
		return printJSON(out, entries)
	case "vessels":
		vessels, err := c.Vessels(ctx)
		if err != nil {
			return err
		}
		if len(vessels) == 0 {
			fmt.Fprintln(out, "No vessels")
			return nil
		}
		for _, v := range vessels {
			state := "inactive"
			if v.IsActive {
				state = "active"
			}
			fmt.Fprintf(out, "%d\t%s\t%s\n", v.RecordID, v.Name, state)
		}
		return nil
	case "vessel", "activate", "deactivate":
		if len(args) < 2 {
			fmt.Fprintf(out, "Usage: %s <id>\n", args[0])
			return nil
		}
		id, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid vessel id %q", args[1])
		}
		if args[0] == "vessel" {
			v, err := c.Vessel(ctx, id)
			if err != nil {
				return err
			}
			return printJSON(out, v)
		}
		res, err := c.SetVesselStatus(ctx, id, args[0] == "activate")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, res.Message)
		return nil
	default:
		fmt.Fprintln(out, "Unknown command. Type 'help' for a list of commands.")
		return nil
	}
}

func printJSON(out io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(out, string(b))
	return nil
}

// main parses command-line flags and starts the shell.
func main() {
	var (
		baseURL string
		token   string
		caFile  string
		showVer bool
	)

	flag.StringVar(&baseURL, "url", "http://localhost:8080", "server base URL")
	flag.StringVar(&token, "token", os.Getenv("PORTAL_TOKEN"), "identity token (defaults to $PORTAL_TOKEN)")
	flag.StringVar(&caFile, "ca", "", "path to a CA or self-signed server cert")
	flag.BoolVar(&showVer, "version", false, "show build version and date")
	flag.Parse()

	if showVer {
		fmt.Printf("Vessel Portal Client\nVersion: %s\nBuild Date: %s\n", version, buildDate)
		return
	}
	if token == "" {
		log.Fatal("please provide -token or set PORTAL_TOKEN")
	}

	httpClient, err := client.NewHTTPClient(caFile)
	if err != nil {
		log.Fatal(err)
	}

	repl(context.Background(), client.New(baseURL, token, httpClient), os.Stdin, os.Stdout)
}
