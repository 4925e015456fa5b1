package assemble

import (
	"bytes"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/spherical/pdf-compressor/internal/domain"
)

var disableConfigDir sync.Once

// Configuration returns a pdfcpu configuration that never touches the user's
// config directory.
func Configuration() *model.Configuration {
	disableConfigDir.Do(api.DisableConfigDir)
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// optimize rewrites raw with object streams and a cross-reference stream.
func optimize(raw []byte) ([]byte, error) {
	conf := Configuration()
	conf.WriteObjectStream = true
	conf.WriteXRefStream = true

	var out bytes.Buffer
	if err := api.Optimize(bytes.NewReader(raw), &out, conf); err != nil {
		return nil, domain.SerializeError("failed to write object streams", err)
	}
	return out.Bytes(), nil
}
