package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"consult-client/internal/api"
	"consult-client/internal/auth"
	"consult-client/internal/config"
	"consult-client/internal/search"
)

// Interactive doctor search: each command mutates the controller and the
// next state is printed when the resulting fetch lands.
//
//	n <text>   edit the name filter (debounced)
//	s <text>   edit the speciality filter (debounced)
//	r <min>    minimum rating (client-side)
//	l <text>   location contains (client-side)
//	o <field> <asc|desc>  sort
//	p <page>   go to page
//	x          reset all filters
//	q          quit
func main() {
	godotenv.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger init:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	credPath := cfg.Auth.CredentialsFile
	if credPath == "" {
		if credPath, err = auth.DefaultPath(); err != nil {
			logger.Fatal("resolve credential path", zap.Error(err))
		}
	}
	store := auth.NewStore(credPath, logger)

	client, err := api.New(cfg.API.BaseURL, api.Options{
		Tokens:  store,
		Timeout: cfg.API.Timeout,
		Logger:  logger,
		OnSessionExpired: func() {
			store.Clear()
			fmt.Fprintln(os.Stderr, "session expired; log in again")
		},
	})
	if err != nil {
		logger.Fatal("api client", zap.Error(err))
	}

	ctrl := search.NewController(client.Doctors(), search.Config{
		Debounce:        cfg.Search.Debounce,
		SuggestDebounce: cfg.Search.SuggestDebounce,
		RequestTimeout:  cfg.API.Timeout,
		PageSize:        cfg.Search.PageSize,
	}, logger, printState)
	defer ctrl.Close()

	ctrl.Search()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("search> ")
		if !scanner.Scan() {
			return
		}
		cmd, arg, _ := strings.Cut(strings.TrimSpace(scanner.Text()), " ")
		switch cmd {
		case "n":
			ctrl.SetSearchName(arg)
		case "s":
			ctrl.SetSpeciality(arg)
		case "r":
			floor, err := strconv.ParseFloat(arg, 64)
			if err != nil {
				fmt.Fprintln(os.Stderr, "bad rating:", arg)
				continue
			}
			ctrl.SetMinRating(floor)
		case "l":
			ctrl.SetLocation(arg)
		case "o":
			field, order, _ := strings.Cut(arg, " ")
			if order != search.SortAsc {
				order = search.SortDesc
			}
			ctrl.SetSort(field, order)
		case "p":
			page, err := strconv.Atoi(arg)
			if err != nil {
				fmt.Fprintln(os.Stderr, "bad page:", arg)
				continue
			}
			ctrl.SetPage(page)
		case "x":
			ctrl.ResetAllFilters()
		case "q":
			return
		case "":
		default:
			fmt.Fprintln(os.Stderr, "unknown command:", cmd)
		}
	}
}

func printState(s search.Snapshot) {
	fmt.Println()
	if s.LastErr != nil {
		fmt.Println("search failed:", s.LastErr)
		return
	}
	for _, d := range s.Doctors {
		fmt.Printf("  %-24s %-20s %-16s %.1f (%d)\n", d.Name, d.Speciality, d.Location, d.AverageRating, d.RatingCount)
	}
	// FilteredOnPage can trail the server page size: the rating/location
	// filters run client-side over one server page.
	fmt.Printf("page %d/%d, %d matches server-side, %d shown\n",
		s.CurrentPage+1, s.TotalPages, s.ServerTotal, s.FilteredOnPage)
	if len(s.NameSuggestions) > 0 {
		fmt.Println("names:", strings.Join(s.NameSuggestions, ", "))
	}
	if len(s.SpecialitySuggestions) > 0 {
		fmt.Println("specialities:", strings.Join(s.SpecialitySuggestions, ", "))
	}
}
