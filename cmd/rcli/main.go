// Command rcli is an interactive REPL over the Client Facade: each typed
// line is tokenized by rawcmd and executed as one raw command.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	redis "github.com/jsp-lqk/metapipe-redis"
	"github.com/jsp-lqk/metapipe-redis/internal/resp"
)

func main() {
	server := flag.String("server", "127.0.0.1:6379", "endpoint to connect to (host:port, tcp://..., unix://...)")
	password := flag.String("password", "", "AUTH password")
	database := flag.Int("db", 0, "database index to SELECT on handshake")
	clusterMode := flag.Bool("cluster", false, "enable cluster-mode routing")
	flag.Parse()

	opts := []redis.Option{redis.WithServer(*server)}
	if *password != "" {
		opts = append(opts, redis.WithPassword(*password))
	}
	if *database > 0 {
		opts = append(opts, redis.WithDatabase(*database))
	}
	if *clusterMode {
		opts = append(opts, redis.WithCluster(true, true))
	}

	client, err := redis.New(opts...)
	if err != nil {
		fmt.Fprintln(os.Stderr, "rcli:", err)
		os.Exit(1)
	}

	scanner := bufio.NewScanner(os.Stdin)
	fmt.Printf("connected to %s> \n", *server)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			return
		}

		v, err := client.ExecuteRawString(line)
		if err != nil {
			fmt.Println("(error)", err)
			continue
		}
		fmt.Println(formatReply(v))
	}
}

func formatReply(v resp.Value) string {
	return v.String()
}
