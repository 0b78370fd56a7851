// Copyright 2025 Antfly, Inc.
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

package annotator

import (
	"embed"
	"io/fs"
	"net/http"
	"os"
)

//go:embed dashboard
var dashboardFS embed.FS

// spaFileSystem serves 'index.html' for any path that doesn't correspond to
// an existing file.
type spaFileSystem struct {
	root http.FileSystem
}

func (fs spaFileSystem) Open(name string) (http.File, error) {
	f, err := fs.root.Open(name)
	if os.IsNotExist(err) {
		return fs.root.Open("index.html")
	}
	return f, err
}

func addDashboardRoutes(mux *http.ServeMux) {
	subFS, err := fs.Sub(dashboardFS, "dashboard")
	if err != nil {
		panic("could not find dashboard directory in embedded files")
	}

	mux.Handle("/", http.FileServer(spaFileSystem{http.FS(subFS)}))
}
