// Command client is a thin preview tool for the hotel catalog: it asks the
// server for a city's ranked hotels and prints them, and can optionally stay
// subscribed to the ranking notification group.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/hotelier-app/hotelier/internal/domain"
)

func main() {
	addr := flag.String("addr", "localhost:4242", "server address")
	city := flag.String("city", "", "city whose catalog to print")
	watch := flag.String("watch", "", "multicast group:port to watch for ranking changes")
	flag.Parse()

	if *city == "" && *watch == "" {
		fmt.Fprintln(os.Stderr, "nothing to do: pass -city and/or -watch")
		os.Exit(2)
	}

	if *city != "" {
		if err := printCity(*addr, *city); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}

	if *watch != "" {
		if err := watchRankings(*watch); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
}

func printCity(addr, city string) error {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", addr, err)
	}
	defer conn.Close()

	body, err := json.Marshal(map[string]string{"city": city})
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(conn, "searchAllHotels\n%s\n\n", body); err != nil {
		return fmt.Errorf("sending request: %w", err)
	}

	in := bufio.NewScanner(conn)
	if !in.Scan() {
		return fmt.Errorf("connection closed before response")
	}
	status := in.Text()
	if !strings.HasPrefix(status, "200") {
		return fmt.Errorf("server answered %q", status)
	}

	var response strings.Builder
	for in.Scan() {
		line := in.Text()
		if line == "" {
			break
		}
		response.WriteString(line)
	}

	var hotels []domain.Hotel
	if err := json.Unmarshal([]byte(response.String()), &hotels); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}

	for _, h := range hotels {
		fmt.Printf("%2d. %s (%s) rate %.2f\n", h.Rank, h.Name, h.Phone, h.Rate)
	}
	return nil
}

func watchRankings(group string) error {
	addr, err := net.ResolveUDPAddr("udp", group)
	if err != nil {
		return fmt.Errorf("resolving group %q: %w", group, err)
	}
	conn, err := net.ListenMulticastUDP("udp", nil, addr)
	if err != nil {
		return fmt.Errorf("joining group %q: %w", group, err)
	}
	defer conn.Close()

	fmt.Printf("watching %s for ranking changes\n", group)

	buf := make([]byte, 64*1024)
	for {
		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			return fmt.Errorf("reading notification: %w", err)
		}

		var changes []domain.LeaderChange
		if err := json.Unmarshal(buf[:n], &changes); err != nil {
			fmt.Fprintf(os.Stderr, "unparseable notification: %v\n", err)
			continue
		}
		for _, c := range changes {
			fmt.Printf("new leader in %s: %s\n", c.City, c.Hotel)
		}
	}
}
