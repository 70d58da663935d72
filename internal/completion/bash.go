// Package completion generates the bash-completion script for the bugconf
// command family from the option registry, so the shipped completions can
// never drift from the recognized flag set.
package completion

import (
	"io"
	"strings"
	"text/template"

	"github.com/crashtriage/bugconf/internal/options"
)

// Commands lists the command names the completion script attaches to.
var Commands = []string{"bugconf", "bclistbuilds", "bcrepro", "bcreduce"}

const bashTemplate = `# bash completion for the bugconf command family.
# Generated by "bugconf --completions"; do not edit by hand.

_bugconf() {
    local cur prev
    cur="${COMP_WORDS[COMP_CWORD]}"
    prev="${COMP_WORDS[COMP_CWORD-1]}"

    case "$prev" in
        -b|--build)
            COMPREPLY=($(compgen -W "$(bclistbuilds 2>/dev/null)" -- "$cur"))
            return
            ;;
{{- if .DirFlags}}
        {{.DirFlags}})
            COMPREPLY=($(compgen -d -- "$cur"))
            return
            ;;
{{- end}}
{{- if .FileFlags}}
        {{.FileFlags}})
            COMPREPLY=($(compgen -f -- "$cur"))
            return
            ;;
{{- end}}
    esac

    if [[ "$cur" == -* ]]; then
        COMPREPLY=($(compgen -W "{{.AllFlags}}" -- "$cur"))
        return
    fi
    COMPREPLY=($(compgen -f -- "$cur"))
}

complete -F _bugconf {{.Commands}}
`

type templateData struct {
	DirFlags  string
	FileFlags string
	AllFlags  string
	Commands  string
}

// WriteBash writes the completion script to w.
func WriteBash(w io.Writer) error {
	var all, dirs, files []string
	for _, spec := range options.Registry {
		if spec.Short != "" {
			all = append(all, "-"+spec.Short)
		}
		all = append(all, "--"+spec.Name)

		if !spec.Path || spec.Name == "build" {
			continue
		}
		forms := []string{"--" + spec.Name}
		if spec.Short != "" {
			forms = append([]string{"-" + spec.Short}, forms...)
		}
		if spec.Dir {
			dirs = append(dirs, forms...)
		} else {
			files = append(files, forms...)
		}
	}
	all = append(all, "-w", "--write", "-v", "--verbose", "-h", "--help")

	tmpl := template.Must(template.New("bash").Parse(bashTemplate))
	return tmpl.Execute(w, templateData{
		DirFlags:  strings.Join(dirs, "|"),
		FileFlags: strings.Join(files, "|"),
		AllFlags:  strings.Join(all, " "),
		Commands:  strings.Join(Commands, " "),
	})
}
