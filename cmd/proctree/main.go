// proctree prints, searches and kills process trees.
//
//	proctree 1234                     # same as proctree tree 1234
//	proctree tree 1234 --format table
//	proctree pidof sshd
//	proctree kill 1234 --signal TERM
//	proctree snapshot save table.yaml
//	proctree tree 1 --from-file table.yaml
package main

import (
	"os"

	"github.com/spf13/afero"
)

func main() {
	if err := newRootCommand(newApp(afero.NewOsFs())).Execute(); err != nil {
		os.Exit(1)
	}
}
