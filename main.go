// Command fedlace reads timelines, posts notes and cross-posts rss feeds
// through ActivityPub and Pump.io accounts.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"

	"github.com/tkrehbiel/fedlace/connector"
	"github.com/tkrehbiel/fedlace/connector/activity"
	"github.com/tkrehbiel/fedlace/connector/api"
	"github.com/tkrehbiel/fedlace/connector/storage"
	"github.com/tkrehbiel/fedlace/connector/telemetry"
)

func readConfig(filename string) (connector.Config, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return connector.Config{}, fmt.Errorf("opening config [%s]: %w", filename, err)
	}
	cfg, err := connector.ReadConfig(b)
	if err != nil {
		return cfg, fmt.Errorf("parsing config [%s]: %w", filename, err)
	}
	return cfg, cfg.Validate()
}

var timelines = map[string]api.Routine{
	"home":      api.HomeTimeline,
	"actor":     api.ActorTimeline,
	"liked":     api.LikedTimeline,
	"friends":   api.GetFriends,
	"followers": api.GetFollowers,
}

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), `usage: fedlace [flags] command [args]

commands:
  timeline home|actor|liked|friends|followers [older]
  post text
  like note-id
  follow actor-id|user@host
  crosspost

flags:
`)
	flag.PrintDefaults()
}

func main() {
	configFile := flag.String("config", "config.json", "config json file")
	account := flag.String("account", "", "account name, defaults to the first account")
	pages := flag.Int("pages", 1, "timeline pages to fetch, 0 for all")
	limit := flag.Int("limit", 20, "items per timeline page")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}

	cfg, err := readConfig(*configFile)
	if err != nil {
		telemetry.Error(err, "reading config")
		os.Exit(1)
	}

	client, err := connector.NewClient(cfg, storage.NewDatabase(cfg.Database), nil)
	if err != nil {
		telemetry.Error(err, "starting fedlace")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	name := *account
	if name == "" && len(cfg.Accounts) > 0 {
		name = cfg.Accounts[0].Name
	}

	err = run(ctx, client, name, flag.Args(), *limit, *pages)
	client.Close()
	if err != nil {
		telemetry.Error(err, "%s", flag.Arg(0))
		os.Exit(1)
	}
}

func run(ctx context.Context, client *connector.Client, name string, args []string, limit, pages int) error {
	if args[0] == "crosspost" {
		return crossPostAll(ctx, client)
	}

	conn, err := client.Connect(name)
	if err != nil {
		return err
	}

	switch args[0] {
	case "timeline":
		if len(args) < 2 {
			return errors.New("which timeline?")
		}
		routine, ok := timelines[args[1]]
		if !ok {
			return fmt.Errorf("unknown timeline %q", args[1])
		}
		dir := api.Younger
		if len(args) > 2 && args[2] == "older" {
			dir = api.Older
		}
		list, err := conn.Timeline(ctx, routine, activity.EmptyActor, dir, limit, pages)
		if err != nil {
			return err
		}
		for _, page := range list {
			for _, item := range page.Items {
				printActivity(item)
			}
		}

	case "post":
		text := strings.TrimSpace(strings.Join(args[1:], " "))
		note := activity.NewNote(activity.NewTempOID())
		note.Content = text
		note.Audience = activity.NewAudience(name)
		note.Audience.SetPublic(true)
		note.Audience.SetFollowers(true)
		act, err := conn.Post(ctx, note)
		if err != nil {
			return err
		}
		printActivity(act)

	case "like":
		if len(args) < 2 {
			return errors.New("like what?")
		}
		item, err := conn.GetNote(ctx, args[1])
		if err != nil {
			return err
		}
		act, err := conn.Like(ctx, item)
		if err != nil {
			return err
		}
		printActivity(act)

	case "follow":
		if len(args) < 2 {
			return errors.New("follow whom?")
		}
		var actor activity.Actor
		if strings.Contains(args[1], "://") {
			actor, err = conn.GetActor(ctx, args[1])
		} else {
			actor, err = conn.ActorByWebFinger(ctx, args[1])
		}
		if err != nil {
			return err
		}
		act, err := conn.Follow(ctx, actor)
		if err != nil {
			return err
		}
		printActivity(act)

	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
	return nil
}

// crossPostAll watches every configured feed until interrupted.
func crossPostAll(ctx context.Context, client *connector.Client) error {
	if len(client.Config.Feeds) == 0 {
		return errors.New("no feeds configured")
	}
	var wg sync.WaitGroup
	errs := make([]error, len(client.Config.Feeds))
	for i, feed := range client.Config.Feeds {
		conn, err := client.Connect(feed.Account)
		if err != nil {
			return err
		}
		wg.Add(1)
		go func(i int, conn *connector.Connection, feed connector.FeedConfig) {
			defer wg.Done()
			telemetry.Log("cross-posting %s as %s", feed.URL, feed.Account)
			errs[i] = conn.CrossPost(ctx, feed)
		}(i, conn, feed)
	}
	wg.Wait()
	telemetry.Log("stopped cross-posting")
	return errors.Join(errs...)
}

func printActivity(act activity.Activity) {
	note := act.Note()
	fmt.Printf("%s %s %s\n", act.Type, act.Actor.OID, act.OID)
	if note.HasText() {
		fmt.Printf("  %s\n", strings.TrimSpace(note.Content))
	}
}
