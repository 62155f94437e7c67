package logging

import mccio "github.com/oide-iot/mcc-infra/pkg/io"

func FileNames(files []mccio.File) []string {
	s := make([]string, len(files))
	for i, f := range files {
		s[i] = f.Path()
	}
	return s
}
