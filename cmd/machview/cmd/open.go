package cmd

import (
	"strings"

	"github.com/apex/log"
	"github.com/pkg/errors"
	"github.com/spf13/viper"

	macho "github.com/appsworld/go-machview"
)

// openFile parses the named file with the fat.* and codesign settings.
func openFile(name string) (*macho.File, error) {
	f, err := macho.Open(name, macho.Config{
		Concurrency:   viper.GetInt("fat.jobs"),
		CodeSignature: viper.GetBool("codesign"),
	})
	if err != nil {
		return nil, err
	}
	log.WithField("file", name).Debug(f.Describe())
	return f, nil
}

// selectMachOs returns the images of f, narrowed to the fat.arch slice when
// one is set.
func selectMachOs(f *macho.File) ([]*macho.MachO, error) {
	arch := viper.GetString("fat.arch")
	if f.Fat == nil || arch == "" {
		return f.MachOs(), nil
	}
	var names []string
	for _, a := range f.Fat.Arches {
		if archMatches(a, arch) {
			return []*macho.MachO{a.MachO}, nil
		}
		names = append(names, a.CPU.String())
	}
	return nil, errors.Errorf("no %s slice (file has %s)", arch, strings.Join(names, ", "))
}

func archMatches(a macho.FatArch, arch string) bool {
	return strings.EqualFold(a.CPU.String(), arch) || strings.EqualFold(a.SubCPU.String(a.CPU), arch)
}
