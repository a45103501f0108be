package report

const markdownTemplate = `# Experiment report: {{.Name}}

| | |
|---|---|
| Run | {{.RunID}} |
| Mode | {{.Mode}}{{if .QuickTest}} (quick test){{end}} |
| Started | {{.StartedAt.UTC.Format "2006-01-02 15:04:05 UTC"}} |
{{- if .Duration}}
| Duration | {{.Duration}} |
{{- end}}
{{- if .Dispatch}}
| Training dispatch | {{.Dispatch}} |
{{- end}}
| Split (train / validation / test) | {{.Split.Train}} / {{.Split.Validation}} / {{.Split.Test}} |

{{- with .Decision}}

## Decision

**{{.Summary}}**
{{range .Recommendations}}
- {{.}}
{{- end}}
{{- end}}

{{- if .Rows}}

## Metrics

| Metric | A mean | A std | B mean | B std | p-value | Effect size | Significant |
|---|---|---|---|---|---|---|---|
{{- range .Rows}}
| {{.Metric}} | {{f4 .MeanA}} | {{f4 .StdA}} | {{f4 .MeanB}} | {{f4 .StdB}} | {{f4 .PValue}} | {{f2 .EffectSize}} | {{yesno .Significant}} |
{{- end}}

{{range .Rows}}
- {{.Interpretation}}
{{- end}}
{{- end}}

{{- if .CVRows}}

## Cross-validation ({{.CrossValidation.Folds}} folds)

| Metric | A mean | A std | B mean | B std |
|---|---|---|---|---|
{{- range .CVRows}}
| {{.Metric}} | {{f4 .MeanA}} | {{f4 .StdA}} | {{f4 .MeanB}} | {{f4 .StdB}} |
{{- end}}
{{- end}}

{{- if .Models}}

## Models
{{range $v, $m := .Models}}
- {{$v}}: {{$m.URI}}{{if $m.Name}} (persisted as {{$m.Name}}){{end}}
{{- end}}
{{- end}}
`
