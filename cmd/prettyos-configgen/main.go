// Command prettyos-configgen turns a human-editable YAML configuration
// file into a Go source file defining the equivalent kernel.Config
// literal, so an embedded build can compile against a genuine
// compile-time constant while internal/config's YAML file remains the
// editable source of truth during development.
package main

import (
	"fmt"
	"go/format"
	"os"
	"strings"
	"text/template"

	"github.com/spf13/pflag"

	"github.com/yahiafarghaly/prettyos-go/internal/config"
)

const tmplSrc = `// Code generated by prettyos-configgen from {{.Source}}. DO NOT EDIT.

package {{.Package}}

import "github.com/yahiafarghaly/prettyos-go/internal/kernel"

// {{.VarName}} is the compile-time kernel configuration generated from
// {{.Source}}.
var {{.VarName}} = kernel.Config{
	TaskCount:              {{.Cfg.TaskCount}},
	TicksPerSecond:         {{.Cfg.TicksPerSecond}},
	MaxECBs:                {{.Cfg.MaxECBs}},
	MaxFlagGroups:          {{.Cfg.MaxFlagGroups}},
	MaxPartitions:          {{.Cfg.MaxPartitions}},
	SemaphoreEnabled:       {{.Cfg.SemaphoreEnabled}},
	MutexEnabled:           {{.Cfg.MutexEnabled}},
	MailboxEnabled:         {{.Cfg.MailboxEnabled}},
	FlagEnabled:            {{.Cfg.FlagEnabled}},
	PartitionEnabled:       {{.Cfg.PartitionEnabled}},
	EDFEnabled:             {{.Cfg.EDFEnabled}},
	StackOverflowDetection: {{.Cfg.StackOverflowDetection}},
	FlagWordWidth:          kernel.FlagWidth({{.Cfg.FlagWordWidth}}),
}
`

type tmplData struct {
	Source  string
	Package string
	VarName string
	Cfg     kernelConfigView
}

// kernelConfigView mirrors kernel.Config's exported fields as plain Go
// types (FlagWordWidth as an int) so the template above can print each
// one by name; the template wraps FlagWordWidth back in kernel.FlagWidth.
type kernelConfigView struct {
	TaskCount              int
	TicksPerSecond         int
	MaxECBs                int
	MaxFlagGroups          int
	MaxPartitions          int
	SemaphoreEnabled       bool
	MutexEnabled           bool
	MailboxEnabled         bool
	FlagEnabled            bool
	PartitionEnabled       bool
	EDFEnabled             bool
	StackOverflowDetection bool
	FlagWordWidth          int
}

func main() {
	var (
		in      = pflag.StringP("in", "i", "", "Input YAML configuration file (required).")
		out     = pflag.StringP("out", "o", "", "Output Go file path (required).")
		pkg     = pflag.String("package", "genconfig", "Go package name for the generated file.")
		varName = pflag.String("var", "Config", "Variable name for the generated kernel.Config literal.")
	)
	pflag.Parse()
	if *in == "" || *out == "" {
		fmt.Fprintln(os.Stderr, "both --in and --out are required")
		pflag.Usage()
		os.Exit(1)
	}

	f, err := config.Load(*in)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	c := f.ToKernelConfig()

	data := tmplData{
		Source:  *in,
		Package: *pkg,
		VarName: *varName,
		Cfg: kernelConfigView{
			TaskCount:              c.TaskCount,
			TicksPerSecond:         c.TicksPerSecond,
			MaxECBs:                c.MaxECBs,
			MaxFlagGroups:          c.MaxFlagGroups,
			MaxPartitions:          c.MaxPartitions,
			SemaphoreEnabled:       c.SemaphoreEnabled,
			MutexEnabled:           c.MutexEnabled,
			MailboxEnabled:         c.MailboxEnabled,
			FlagEnabled:            c.FlagEnabled,
			PartitionEnabled:       c.PartitionEnabled,
			EDFEnabled:             c.EDFEnabled,
			StackOverflowDetection: c.StackOverflowDetection,
			FlagWordWidth:          int(c.FlagWordWidth),
		},
	}

	tmpl := template.Must(template.New("configgen").Parse(tmplSrc))
	var buf strings.Builder
	if err := tmpl.Execute(&buf, data); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	formatted, err := format.Source([]byte(buf.String()))
	if err != nil {
		// Fall back to the unformatted template output rather than
		// losing the generated file entirely.
		formatted = []byte(buf.String())
	}

	if err := os.WriteFile(*out, formatted, 0o644); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
