package postgres

import "github.com/photark/photark/internal/catalog"

// Relation expansions attach JSON sub-objects or arrays to the asset select.
// Each expansion shares a join key with any filter needing the same
// relation, so the relation is joined exactly once no matter how many option
// flags ask for it.

// joinExif left-joins the exif row for the exif expansion. Shares its key
// with joinExifRequired so the relation is joined exactly once.
func joinExif(q *assetQuery) {
	q.join("exif", "LEFT JOIN exif ON exif.asset_id = assets.id")
}

// joinExifRequired inner-joins the exif row. EXIF filter predicates use it:
// an explicit-NULL filter must match assets whose exif record lacks the
// value, not assets with no exif record at all, so the left join an
// expansion may have planned is upgraded.
func joinExifRequired(q *assetQuery) {
	q.joinRequired("exif", "INNER JOIN exif ON exif.asset_id = assets.id")
}

func withExifRelation(q *assetQuery) {
	joinExif(q)
	q.selectExpr("jsonb_strip_nulls(to_jsonb(exif)) AS exif", "exif")
}

// withFacesRelation aggregates face rows into a JSON array. The withPeople
// variant merges the assigned person into each face object; unassigned faces
// keep their plain shape.
func withFacesRelation(q *assetQuery, withPeople bool) {
	if withPeople {
		q.join("faces", `LEFT JOIN LATERAL (
			SELECT jsonb_agg(
				CASE WHEN p.id IS NOT NULL
					THEN jsonb_insert(to_jsonb(f), '{person}', to_jsonb(p))
					ELSE to_jsonb(f)
				END
			) AS faces
			FROM asset_faces f
			LEFT JOIN person p ON p.id = f.person_id
			WHERE f.asset_id = assets.id
		) faces ON true`)
	} else {
		q.join("faces", `LEFT JOIN LATERAL (
			SELECT jsonb_agg(to_jsonb(f)) AS faces
			FROM asset_faces f
			WHERE f.asset_id = assets.id
		) faces ON true`)
	}
	q.selectExpr("faces.faces AS faces", "faces")
}

func withFilesRelation(q *assetQuery) {
	q.join("files", `LEFT JOIN LATERAL (
		SELECT jsonb_agg(to_jsonb(af)) AS files
		FROM asset_files af
		WHERE af.asset_id = assets.id
	) files ON true`)
	q.selectExpr("files.files AS files", "files")
}

func withAlbumsRelation(q *assetQuery) {
	q.join("albums", `LEFT JOIN LATERAL (
		SELECT jsonb_agg(to_jsonb(al)) AS albums
		FROM albums al
		JOIN albums_assets_assets aa ON aa.albums_id = al.id
		WHERE aa.assets_id = assets.id AND al.deleted_at IS NULL
	) albums ON true`)
	q.selectExpr("albums.albums AS albums", "albums")
}

func withOwnerRelation(q *assetQuery) {
	q.join("owner", "LEFT JOIN users owner ON owner.id = assets.owner_id")
	q.selectExpr("to_jsonb(owner) AS owner", "owner")
}

func withLibraryRelation(q *assetQuery) {
	q.join("library", "LEFT JOIN libraries library ON library.id = assets.library_id")
	q.selectExpr("to_jsonb(library) AS library", "library")
}

// withStackRelation attaches the asset's stack. With siblings, the stack
// object carries an assets array of the non-primary members; soft-deleted
// siblings are excluded unless withDeleted.
func withStackRelation(q *assetQuery, withSiblings, withDeleted bool) {
	if !withSiblings {
		q.join("stack", `LEFT JOIN LATERAL (
			SELECT to_jsonb(s) AS stack
			FROM asset_stack s
			WHERE s.id = assets.stack_id
		) stack ON true`)
		q.selectExpr("stack.stack AS stack", "stack")
		return
	}

	deletedFilter := " AND sa.deleted_at IS NULL"
	if withDeleted {
		deletedFilter = ""
	}
	q.join("stack", `LEFT JOIN LATERAL (
		SELECT jsonb_set(to_jsonb(s), '{assets}', COALESCE(siblings.assets, '[]'::jsonb)) AS stack
		FROM asset_stack s
		LEFT JOIN LATERAL (
			SELECT jsonb_agg(to_jsonb(sa)) AS assets
			FROM assets sa
			WHERE sa.stack_id = s.id AND sa.id <> s.primary_asset_id`+deletedFilter+`
		) siblings ON true
		WHERE s.id = assets.stack_id
	) stack ON true`)
	q.selectExpr("stack.stack AS stack", "stack")
}

// applyRelations attaches the requested expansions. People implies Faces and
// StackAssets implies Stack.
func applyRelations(q *assetQuery, r catalog.AssetRelations, withDeleted bool) {
	if r.Exif {
		withExifRelation(q)
	}
	if r.Faces || r.People {
		withFacesRelation(q, r.People)
	}
	if r.Files {
		withFilesRelation(q)
	}
	if r.Albums {
		withAlbumsRelation(q)
	}
	if r.Owner {
		withOwnerRelation(q)
	}
	if r.Library {
		withLibraryRelation(q)
	}
	if r.Stack || r.StackAssets {
		withStackRelation(q, r.StackAssets, withDeleted)
	}
}
