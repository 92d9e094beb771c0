package registry

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dbsmedya/batchopt/internal/sqlutil"
	"github.com/dbsmedya/batchopt/internal/types"
)

// Registry tables, each prefixed with the configured table prefix:
//
//	packages(name, app_id, has_descriptor)
//	components(package_name, name, path, has_code, position)
//	secondary_files(package_name, path, position)
//	libraries(name, package_name)
//	library_dependencies(library_name, dependency_name, position)
//	package_libraries(package_name, library_name, position)
//	hibernation(package_name, hibernating)
const (
	tablePackages            = "packages"
	tableComponents          = "components"
	tableSecondaryFiles      = "secondary_files"
	tableLibraries           = "libraries"
	tableLibraryDependencies = "library_dependencies"
	tablePackageLibraries    = "package_libraries"
	tableHibernation         = "hibernation"
)

// Loader reads registry tables into a Snapshot.
type Loader struct {
	db     *sql.DB
	prefix string
}

// NewLoader creates a loader. prefix must be a valid identifier fragment.
func NewLoader(db *sql.DB, prefix string) (*Loader, error) {
	if db == nil {
		return nil, fmt.Errorf("database is nil")
	}
	if prefix != "" && !sqlutil.IsValidIdentifier(prefix) {
		return nil, &sqlutil.InvalidIdentifierError{Name: prefix}
	}
	return &Loader{db: db, prefix: prefix}, nil
}

func (l *Loader) table(name string) string {
	// prefix is validated in NewLoader and names are constants
	quoted, _ := sqlutil.TableName(l.prefix, name)
	return quoted
}

// Load reads every package with its components, secondary files and
// library edges. Library references to unknown libraries are errors.
func (l *Loader) Load(ctx context.Context) (*Snapshot, error) {
	snap := NewSnapshot()

	if err := l.loadPackages(ctx, snap); err != nil {
		return nil, err
	}
	if err := l.loadComponents(ctx, snap); err != nil {
		return nil, err
	}
	if err := l.loadSecondaryFiles(ctx, snap); err != nil {
		return nil, err
	}
	if err := l.loadLibraries(ctx, snap); err != nil {
		return nil, err
	}
	if err := l.loadLibraryDependencies(ctx, snap); err != nil {
		return nil, err
	}
	if err := l.loadPackageLibraries(ctx, snap); err != nil {
		return nil, err
	}
	return snap, nil
}

// query runs a SELECT and calls scan for each row.
func (l *Loader) query(ctx context.Context, table, query string, scan func(*sql.Rows) error) error {
	rows, err := l.db.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to query %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		if err := scan(rows); err != nil {
			return fmt.Errorf("failed to scan %s: %w", table, err)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating %s: %w", table, err)
	}
	return nil
}

func (l *Loader) loadPackages(ctx context.Context, snap *Snapshot) error {
	query := fmt.Sprintf("SELECT name, app_id, has_descriptor FROM %s ORDER BY name", l.table(tablePackages))
	return l.query(ctx, tablePackages, query, func(rows *sql.Rows) error {
		var (
			unit          types.UnitDescriptor
			hasDescriptor bool
		)
		if err := rows.Scan(&unit.Name, &unit.AppID, &hasDescriptor); err != nil {
			return err
		}
		if hasDescriptor {
			unit.Content = &types.ContentDescriptor{}
		}
		snap.Add(&unit)
		return nil
	})
}

func (l *Loader) loadComponents(ctx context.Context, snap *Snapshot) error {
	query := fmt.Sprintf("SELECT package_name, name, path, has_code FROM %s ORDER BY package_name, position",
		l.table(tableComponents))
	return l.query(ctx, tableComponents, query, func(rows *sql.Rows) error {
		var (
			pkg       string
			component types.Component
		)
		if err := rows.Scan(&pkg, &component.Name, &component.Path, &component.HasCode); err != nil {
			return err
		}
		unit := snap.GetUnit(pkg)
		if unit == nil || unit.Content == nil {
			// Components of packages without a descriptor are not executable content
			return nil
		}
		unit.Content.Components = append(unit.Content.Components, component)
		return nil
	})
}

func (l *Loader) loadSecondaryFiles(ctx context.Context, snap *Snapshot) error {
	query := fmt.Sprintf("SELECT package_name, path FROM %s ORDER BY package_name, position",
		l.table(tableSecondaryFiles))
	return l.query(ctx, tableSecondaryFiles, query, func(rows *sql.Rows) error {
		var pkg, path string
		if err := rows.Scan(&pkg, &path); err != nil {
			return err
		}
		if unit := snap.GetUnit(pkg); unit != nil && unit.Content != nil {
			unit.Content.SecondaryFiles = append(unit.Content.SecondaryFiles, path)
		}
		return nil
	})
}

func (l *Loader) loadLibraries(ctx context.Context, snap *Snapshot) error {
	query := fmt.Sprintf("SELECT name, package_name FROM %s ORDER BY name", l.table(tableLibraries))
	return l.query(ctx, tableLibraries, query, func(rows *sql.Rows) error {
		var lib types.LibraryDescriptor
		if err := rows.Scan(&lib.Name, &lib.PackageName); err != nil {
			return err
		}
		snap.libraries[lib.Name] = &lib
		return nil
	})
}

func (l *Loader) loadLibraryDependencies(ctx context.Context, snap *Snapshot) error {
	query := fmt.Sprintf("SELECT library_name, dependency_name FROM %s ORDER BY library_name, position",
		l.table(tableLibraryDependencies))
	return l.query(ctx, tableLibraryDependencies, query, func(rows *sql.Rows) error {
		var name, dep string
		if err := rows.Scan(&name, &dep); err != nil {
			return err
		}
		lib, err := snap.requireLibrary(name)
		if err != nil {
			return err
		}
		depLib, err := snap.requireLibrary(dep)
		if err != nil {
			return err
		}
		lib.Dependencies = append(lib.Dependencies, depLib)
		return nil
	})
}

func (l *Loader) loadPackageLibraries(ctx context.Context, snap *Snapshot) error {
	query := fmt.Sprintf("SELECT package_name, library_name FROM %s ORDER BY package_name, position",
		l.table(tablePackageLibraries))
	return l.query(ctx, tablePackageLibraries, query, func(rows *sql.Rows) error {
		var pkg, name string
		if err := rows.Scan(&pkg, &name); err != nil {
			return err
		}
		unit := snap.GetUnit(pkg)
		if unit == nil {
			return fmt.Errorf("library %q used by unknown package %q", name, pkg)
		}
		lib, err := snap.requireLibrary(name)
		if err != nil {
			return err
		}
		unit.UsesLibraries = append(unit.UsesLibraries, lib)
		return nil
	})
}

func (s *Snapshot) requireLibrary(name string) (*types.LibraryDescriptor, error) {
	lib := s.libraries[name]
	if lib == nil {
		return nil, fmt.Errorf("unknown library %q", name)
	}
	return lib, nil
}

// LoadPolicy reads hibernating packages. deletionEnabled comes from configuration.
func (l *Loader) LoadPolicy(ctx context.Context, deletionEnabled bool) (*StaticPolicy, error) {
	var dormant []string
	query := fmt.Sprintf("SELECT package_name FROM %s WHERE hibernating = 1 ORDER BY package_name",
		l.table(tableHibernation))
	err := l.query(ctx, tableHibernation, query, func(rows *sql.Rows) error {
		var name string
		if err := rows.Scan(&name); err != nil {
			return err
		}
		dormant = append(dormant, name)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return NewStaticPolicy(deletionEnabled, dormant...), nil
}
