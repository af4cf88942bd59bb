package main

import (
	"bufio"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"relaychat/internal/client"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:1337", "Server control address")
	relayAddr := flag.String("relay-addr", "127.0.0.1:1338", "Server file relay address")
	downloads := flag.String("downloads", "downloads", "Directory for received files")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	level := slog.LevelWarn
	if *debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	c := client.New(*addr, *relayAddr, *downloads, os.Stdout)
	if err := c.Connect(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}

	stdin := bufio.NewScanner(os.Stdin)

	// Login loop: retry until the server accepts a name.
	for {
		fmt.Print("Enter username: ")
		if !stdin.Scan() {
			return
		}
		code, err := c.Login(stdin.Text())
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(1)
		}
		if code == 0 {
			break
		}
	}

	fmt.Println("You are now in chat mode.")
	c.PrintHelp()

	go func() {
		if err := c.Run(); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
		// The reader is gone, so no further input can do anything.
		os.Exit(0)
	}()

	for stdin.Scan() {
		c.HandleInput(stdin.Text())
	}
	c.Close()
}
