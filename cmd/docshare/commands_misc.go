package main

import (
	"context"
	"fmt"
	"io"

	"github.com/common-nighthawk/go-figure"
)

func statsCmd(ctx context.Context, a *app, args []string) error {
	if _, err := parse(a.flags("stats", ""), args); err != nil {
		return err
	}
	stats, err := a.client.API.Stats(ctx)
	if err != nil {
		return err
	}
	return a.print(stats, func(w io.Writer) {
		fmt.Fprintf(w, "documents:\t%d\n", stats.TotalDocuments)
		fmt.Fprintf(w, "courses:\t%d\n", stats.TotalCourses)
		fmt.Fprintf(w, "users:\t%d\n", stats.TotalUsers)
		fmt.Fprintf(w, "downloads:\t%d\n", stats.TotalDownloads)
	})
}

func versionCmd(_ context.Context, a *app, args []string) error {
	if _, err := parse(a.flags("version", ""), args); err != nil {
		return err
	}
	return a.print(map[string]string{"version": version}, func(w io.Writer) {
		fmt.Fprint(w, figure.NewFigure(a.cfg.GetAppName(), "cybermedium", true).String())
		fmt.Fprintln(w)
		fmt.Fprintf(w, "%s %s\n", a.cfg.GetAppName(), version)
	})
}
