package main

import (
	"context"
	"fmt"
	"io"

	"github.com/jrsteele09/go-docshare-client/courses"
	"github.com/jrsteele09/go-docshare-client/internal/utils"
)

var coursesCommands = map[string]subcommand{
	"list":   coursesList,
	"show":   coursesShow,
	"create": coursesCreate,
	"edit":   coursesEdit,
	"delete": coursesDelete,
}

func coursesCmd(ctx context.Context, a *app, args []string) error {
	return dispatch(ctx, a, "courses", coursesCommands, args)
}

func coursesList(ctx context.Context, a *app, args []string) error {
	if _, err := parse(a.flags("courses list", ""), args); err != nil {
		return err
	}
	list, err := a.client.API.ListCourses(ctx)
	if err != nil {
		return err
	}
	if list == nil {
		list = []courses.Course{}
	}
	return a.print(list, func(w io.Writer) {
		fmt.Fprintln(w, "ID\tNAME\tDOMAIN\tDOCUMENTS")
		for _, c := range list {
			fmt.Fprintf(w, "%d\t%s\t%s\t%d\n", c.ID, c.Name, c.Domain, c.DocumentsCount)
		}
	})
}

func coursesShow(ctx context.Context, a *app, args []string) error {
	positional, err := parse(a.flags("courses show", "<id|domain>"), args)
	if err != nil {
		return err
	}
	if len(positional) != 1 {
		return usageError("courses show <id|domain>")
	}
	id, err := a.resolveCourse(ctx, positional[0])
	if err != nil {
		return err
	}

	course, err := a.client.API.GetCourse(ctx, id)
	if err != nil {
		return err
	}
	return a.printCourse(course)
}

func coursesCreate(ctx context.Context, a *app, args []string) error {
	fs := a.flags("courses create", "--name text --domain slug [--description text]")
	name := fs.String("name", "", "course name")
	domain := fs.String("domain", "", "unique domain slug, e.g. informatique")
	description := fs.String("description", "", "description")
	if _, err := parse(fs, args); err != nil {
		return err
	}
	if *name == "" || *domain == "" {
		return usageError("courses create --name text --domain slug [--description text]")
	}
	if err := a.requireLogin(); err != nil {
		return err
	}

	course, err := a.client.API.CreateCourse(ctx, courses.Input{
		Name:        utils.Ptr(*name),
		Domain:      utils.Ptr(*domain),
		Description: utils.Ptr(*description),
	})
	if err != nil {
		return apiFailure(err)
	}
	return a.printCourse(course)
}

func coursesEdit(ctx context.Context, a *app, args []string) error {
	fs := a.flags("courses edit", "<id> [--name text] [--domain slug] [--description text]")
	name := fs.String("name", "", "new name")
	domain := fs.String("domain", "", "new domain slug")
	description := fs.String("description", "", "new description")
	positional, err := parse(fs, args)
	if err != nil {
		return err
	}
	id, err := oneID("courses edit", positional)
	if err != nil {
		return err
	}
	if err := a.requireLogin(); err != nil {
		return err
	}

	set := setFlags(fs)
	var in courses.Input
	if set["name"] {
		in.Name = utils.Ptr(*name)
	}
	if set["domain"] {
		in.Domain = utils.Ptr(*domain)
	}
	if set["description"] {
		in.Description = utils.Ptr(*description)
	}
	if in.Name == nil && in.Domain == nil && in.Description == nil {
		return usageError("courses edit: nothing to change")
	}

	course, err := a.client.API.UpdateCourse(ctx, id, in)
	if err != nil {
		return apiFailure(err)
	}
	return a.printCourse(course)
}

func coursesDelete(ctx context.Context, a *app, args []string) error {
	positional, err := parse(a.flags("courses delete", "<id>"), args)
	if err != nil {
		return err
	}
	id, err := oneID("courses delete", positional)
	if err != nil {
		return err
	}
	if err := a.requireLogin(); err != nil {
		return err
	}

	if err := a.client.API.DeleteCourse(ctx, id); err != nil {
		return apiFailure(err)
	}
	return a.print(map[string]int64{"deleted": id}, func(w io.Writer) {
		fmt.Fprintf(w, "course %d deleted\n", id)
	})
}

func (a *app) printCourse(c *courses.Course) error {
	return a.print(c, func(w io.Writer) {
		fmt.Fprintf(w, "id:\t%d\n", c.ID)
		fmt.Fprintf(w, "name:\t%s\n", c.Name)
		fmt.Fprintf(w, "domain:\t%s\n", c.Domain)
		fmt.Fprintf(w, "description:\t%s\n", c.Description)
		fmt.Fprintf(w, "documents:\t%d\n", c.DocumentsCount)
	})
}
