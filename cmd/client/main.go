package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/kiryu-dev/roomchat/internal/domain"
	"github.com/kiryu-dev/roomchat/pkg/wire"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer func() {
		_ = logger.Sync()
	}()
	balancerAddr := flag.String("balancer", "localhost:6000", "load balancer address")
	host := flag.String("host", "localhost", "host of the chat servers")
	flag.Parse()

	c := newClient(bufio.NewScanner(os.Stdin), os.Stdout)
	if err := c.run(*balancerAddr, *host); err != nil {
		logger.Fatal(err.Error())
	}
}

type client struct {
	scanner *bufio.Scanner
	out     io.Writer
}

func newClient(scanner *bufio.Scanner, out io.Writer) *client {
	return &client{
		scanner: scanner,
		out:     out,
	}
}

func (c *client) run(balancerAddr, host string) error {
	name, err := c.prompt("Enter your name: ")
	if err != nil {
		return errors.WithMessage(err, "read name")
	}
	room, err := c.prompt("Enter room: ")
	if err != nil {
		return errors.WithMessage(err, "read room")
	}
	port, err := lookup(balancerAddr, name, room)
	if err != nil {
		return errors.WithMessage(err, "ask balancer")
	}
	conn, err := net.Dial("tcp", net.JoinHostPort(host, strconv.Itoa(int(port))))
	if err != nil {
		return errors.WithMessage(err, "dial chat server")
	}
	defer func() {
		_ = conn.Close()
	}()
	if _, err := conn.Write([]byte(name + "\n" + room + "\n")); err != nil {
		return errors.WithMessage(err, "send handshake")
	}
	fmt.Fprintf(c.out, "joined room %s on port %d, type #help for commands\n", room, port)

	go func() {
		_, _ = io.Copy(c.out, conn)
	}()
	for c.scanner.Scan() {
		line := c.scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		if _, err := conn.Write([]byte(line + "\n")); err != nil {
			return errors.WithMessage(err, "send message")
		}
		if d, ok := domain.ParseDirective(line); ok && d.Kind == domain.DirectiveExit {
			return nil
		}
	}
	return c.scanner.Err()
}

func (c *client) prompt(text string) (string, error) {
	fmt.Fprint(c.out, text)
	if ok := c.scanner.Scan(); !ok {
		if err := c.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.ErrUnexpectedEOF
	}
	return strings.TrimSpace(c.scanner.Text()), nil
}

func lookup(balancerAddr, name, room string) (uint32, error) {
	conn, err := net.Dial("tcp", balancerAddr)
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = conn.Close()
	}()
	if _, err := conn.Write([]byte(name + "\n" + room + "\n")); err != nil {
		return 0, err
	}
	return wire.ReadPort(conn)
}
