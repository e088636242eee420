// Command chat is a minimal line-mode client for poking a running netchat
// server by hand: it forwards stdin lines as protocol frames and prints every
// frame the server sends back.
//
// Input lines:
//
//	/register <user> <email> <password>
//	/login <user> <password>
//	/history <partner>
//	/exit
//	<partner> <text...>   (everything else is a direct message)
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"strings"

	"github.com/waldemarhermann/netchat/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("chat: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "localhost:9999", "server address")
	flag.Parse()

	conn, err := net.Dial("tcp", *addr)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	fmt.Printf("Connected to %s. Type /register, /login, /history, /exit or '<user> <text>'.\n", *addr)

	go func() {
		scanner := bufio.NewScanner(conn)
		for scanner.Scan() {
			var msg proto.Message
			if err := json.Unmarshal(scanner.Bytes(), &msg); err != nil {
				fmt.Printf("<< %s\n", scanner.Text())
				continue
			}
			fmt.Printf("<< [%s] %s -> %s: %s\n", msg.Type, msg.From, msg.To, msg.Text)
		}
		fmt.Println("server closed the connection")
		os.Exit(0)
	}()

	enc := json.NewEncoder(conn)
	user := ""

	stdin := bufio.NewScanner(os.Stdin)
	for stdin.Scan() {
		fields := strings.Fields(stdin.Text())
		if len(fields) == 0 {
			continue
		}

		var msg proto.Message
		switch fields[0] {
		case "/register":
			if len(fields) != 4 {
				fmt.Println("usage: /register <user> <email> <password>")
				continue
			}
			user = fields[1]
			msg = proto.Message{
				Type: proto.TypeRegister,
				From: user,
				Text: fields[2] + proto.PayloadSeparator + fields[3],
			}
		case "/login":
			if len(fields) != 3 {
				fmt.Println("usage: /login <user> <password>")
				continue
			}
			user = fields[1]
			msg = proto.Message{Type: proto.TypeLogin, From: user, Text: fields[2]}
		case "/history":
			if len(fields) != 2 {
				fmt.Println("usage: /history <partner>")
				continue
			}
			msg = proto.Message{Type: proto.TypeHistoryRequest, From: user, To: fields[1]}
		case "/exit":
			msg = proto.Message{Type: proto.TypeExit, From: user}
		default:
			if len(fields) < 2 {
				fmt.Println("usage: <user> <text...>")
				continue
			}
			msg = proto.Message{
				Type: proto.TypeMessage,
				From: user,
				To:   fields[0],
				Text: strings.Join(fields[1:], " "),
			}
		}

		if err := enc.Encode(msg); err != nil {
			return fmt.Errorf("send: %w", err)
		}
	}
	return stdin.Err()
}
