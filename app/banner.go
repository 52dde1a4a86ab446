// Copyright 2025 The pgr Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package app

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/charmbracelet/colorprofile"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/common-nighthawk/go-figure"
	"golang.org/x/term"

	"pgr.dev/router"
)

var methodStyles = map[string]lipgloss.Style{
	http.MethodGet:    lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true),
	http.MethodPost:   lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true),
	http.MethodPut:    lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true),
	http.MethodDelete: lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
	http.MethodPatch:  lipgloss.NewStyle().Foreground(lipgloss.Color("13")).Bold(true),
}

// ColorWriter wraps w so that colors are downsampled to what the terminal
// supports. Colors are stripped entirely when color is false.
func ColorWriter(w io.Writer, color bool) *colorprofile.Writer {
	cpw := colorprofile.NewWriter(w, os.Environ())
	if !color {
		cpw.Profile = colorprofile.NoTTY
	}
	return cpw
}

func (a *App) printStartupBanner(addr, protocol string) {
	if a.config.banner == nil {
		return
	}
	dev := a.config.environment == EnvironmentDevelopment
	w := ColorWriter(a.config.banner, dev)

	gradient := []string{"10", "11"}
	if dev {
		gradient = []string{"12", "14", "10", "11"}
	}
	var art strings.Builder
	for _, line := range figure.NewFigure(a.config.serviceName, "", false).Slicify() {
		if strings.TrimSpace(line) == "" {
			art.WriteString("\n")
			continue
		}
		for i, ch := range line {
			style := lipgloss.NewStyle().Foreground(lipgloss.Color(gradient[i%len(gradient)])).Bold(true)
			art.WriteString(style.Render(string(ch)))
		}
		art.WriteString("\n")
	}

	category := lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Bold(true)
	label := lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Width(14).PaddingLeft(2)
	value := lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Bold(true)
	disabled := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	provider := lipgloss.NewStyle().Foreground(lipgloss.Color("243"))

	line := func(name, v string) string { return label.Render(name+":") + "  " + v + "\n" }

	if strings.HasPrefix(addr, ":") {
		addr = "0.0.0.0" + addr
	}
	var out strings.Builder
	out.WriteString(category.Render("Service") + "\n")
	out.WriteString(line("Version", value.Foreground(lipgloss.Color("14")).Render(a.config.serviceVersion)))
	out.WriteString(line("Environment", value.Foreground(lipgloss.Color("11")).Render(a.config.environment)))
	out.WriteString(line("Address", value.Foreground(lipgloss.Color("10")).Render("http://"+addr)+"  "+
		provider.Render("["+protocol+"]")))
	if t := a.dispatcher.Table(); t != nil {
		out.WriteString(line("Routes", value.Render(fmt.Sprint(t.Len()))))
	}

	out.WriteString("\n" + category.Render("Observability") + "\n")
	if m := a.config.metrics; m != nil {
		target := m.Path()
		if m.ServesOwnEndpoint() {
			target = m.Addr() + target
		}
		out.WriteString(line("Metrics", value.Foreground(lipgloss.Color("13")).Render(target)+"  "+
			provider.Render(fmt.Sprintf("[%s]", m.Provider()))))
	} else {
		out.WriteString(line("Metrics", disabled.Render("Disabled")))
	}
	if t := a.config.tracing; t != nil {
		out.WriteString(line("Tracing", value.Foreground(lipgloss.Color("12")).Render("Enabled")+"  "+
			provider.Render(fmt.Sprintf("[%s]", t.Provider()))))
	} else {
		out.WriteString(line("Tracing", disabled.Render("Disabled")))
	}

	//nolint:errcheck // display output
	fmt.Fprint(w, "\n"+art.String()+"\n"+out.String())
	if t := a.dispatcher.Table(); dev && t != nil && t.Len() > 0 {
		fmt.Fprintln(w) //nolint:errcheck // display output
		RenderRoutes(w, t.Routes(), dev, 80)
	}
	fmt.Fprintln(w) //nolint:errcheck // display output
}

// RenderRoutes writes routes as a table of method, path, routine and
// output shape. width is a lower bound, capped by the terminal width when
// w is a terminal.
//
//	╭────────┬─────────────┬──────────────────────┬────────╮
//	│ Method │ Path        │ Routine              │ Output │
//	├────────┼─────────────┼──────────────────────┼────────┤
//	│ GET    │ /user/:id   │ get /user/:id?fields │ row    │
//	│ POST   │ /users      │ post /users          │ scalar │
//	╰────────┴─────────────┴──────────────────────┴────────╯
func RenderRoutes(w io.Writer, routes []*router.CompiledRoute, color bool, width int) {
	if len(routes) == 0 {
		fmt.Fprintln(w, "No routes compiled") //nolint:errcheck // display output
		return
	}

	rows := make([][]string, 0, len(routes))
	widest := [4]int{len("Method"), len("Path"), len("Routine"), len("Output")}
	for _, r := range routes {
		method := r.Method()
		if style, ok := methodStyles[method]; ok && color {
			method = style.Render(method)
		}
		output := r.Output().Kind.String()
		if r.Output().Set {
			output += "[]"
		}
		cells := []string{r.Method(), r.Pattern(), r.Name(), output}
		for i, c := range cells {
			widest[i] = max(widest[i], len(c))
		}
		rows = append(rows, []string{method, r.Pattern(), r.Name(), output})
	}
	content := widest[0] + widest[1] + widest[2] + widest[3]

	// borders, separators and one cell of padding each side
	tableWidth := max(2+3+8+content, width)
	if f, ok := w.(*os.File); ok {
		if tw, _, err := term.GetSize(int(f.Fd())); err == nil && tw > 0 {
			tableWidth = min(tableWidth, tw)
		}
	}

	border := lipgloss.NewStyle()
	if color {
		border = border.Foreground(lipgloss.Color("240"))
	}
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(border).
		StyleFunc(func(row, _ int) lipgloss.Style {
			style := lipgloss.NewStyle().Padding(0, 1)
			if row == table.HeaderRow && color {
				style = style.Bold(true).Foreground(lipgloss.Color("230"))
			}
			return style
		}).
		Headers("Method", "Path", "Routine", "Output").
		Rows(rows...).
		Width(tableWidth)

	fmt.Fprintln(w, t.Render()) //nolint:errcheck // display output
}

// RenderDiagnostics writes one line per skipped routine.
func RenderDiagnostics(w io.Writer, diags router.Diagnostics, color bool) {
	kind := lipgloss.NewStyle()
	if color {
		kind = kind.Foreground(lipgloss.Color("11")).Bold(true)
	}
	for _, d := range diags {
		//nolint:errcheck // display output
		fmt.Fprintf(w, "%s  %q: %s\n", kind.Render(string(d.Kind)), d.Routine, d.Message)
	}
}
