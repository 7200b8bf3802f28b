package db

import (
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

// Table names.
const (
	CoursesTableName   = "courses"
	FilesTableName     = "downloaded_files"
	ChunksTableName    = "chunks"
	TagsTableName      = "tags"
	ChunkTagsTableName = "chunk_tags"
	VectorsTableName   = "chunk_vectors"
)

const textSize = 2147483647

var (
	CoursesColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt64, Increment: true},
		{Name: "name", Type: field.TypeString},
		{Name: "description", Type: field.TypeString, Size: textSize, Default: ""},
		{Name: "url", Type: field.TypeString, Default: ""},
		{Name: "created_at", Type: field.TypeTime},
	}
	CoursesTable = &schema.Table{
		Name:       CoursesTableName,
		Columns:    CoursesColumns,
		PrimaryKey: []*schema.Column{CoursesColumns[0]},
	}

	FilesColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt64, Increment: true},
		{Name: "name", Type: field.TypeString},
		{Name: "description", Type: field.TypeString, Size: textSize, Default: ""},
		{Name: "created_at", Type: field.TypeTime},
		{Name: "course_id", Type: field.TypeInt64},
	}
	FilesTable = &schema.Table{
		Name:       FilesTableName,
		Columns:    FilesColumns,
		PrimaryKey: []*schema.Column{FilesColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "downloaded_files_courses_files",
				Columns:    []*schema.Column{FilesColumns[4]},
				RefColumns: []*schema.Column{CoursesColumns[0]},
				OnDelete:   schema.Cascade,
			},
		},
	}

	ChunksColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt64, Increment: true},
		{Name: "title", Type: field.TypeString, Default: ""},
		{Name: "url", Type: field.TypeString, Default: ""},
		{Name: "content", Type: field.TypeString, Size: textSize},
		{Name: "content_hash", Type: field.TypeString},
		{Name: "created_at", Type: field.TypeTime},
		{Name: "file_id", Type: field.TypeInt64, Nullable: true},
	}
	ChunksTable = &schema.Table{
		Name:       ChunksTableName,
		Columns:    ChunksColumns,
		PrimaryKey: []*schema.Column{ChunksColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "chunks_downloaded_files_chunks",
				Columns:    []*schema.Column{ChunksColumns[6]},
				RefColumns: []*schema.Column{FilesColumns[0]},
				OnDelete:   schema.Cascade,
			},
		},
		Indexes: []*schema.Index{
			{Name: "chunk_content_hash", Columns: []*schema.Column{ChunksColumns[4]}},
		},
	}

	TagsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt64, Increment: true},
		{Name: "name", Type: field.TypeString, Unique: true},
	}
	TagsTable = &schema.Table{
		Name:       TagsTableName,
		Columns:    TagsColumns,
		PrimaryKey: []*schema.Column{TagsColumns[0]},
	}

	ChunkTagsColumns = []*schema.Column{
		{Name: "chunk_id", Type: field.TypeInt64},
		{Name: "tag_id", Type: field.TypeInt64},
	}
	ChunkTagsTable = &schema.Table{
		Name:       ChunkTagsTableName,
		Columns:    ChunkTagsColumns,
		PrimaryKey: []*schema.Column{ChunkTagsColumns[0], ChunkTagsColumns[1]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "chunk_tags_chunk_id",
				Columns:    []*schema.Column{ChunkTagsColumns[0]},
				RefColumns: []*schema.Column{ChunksColumns[0]},
				OnDelete:   schema.Cascade,
			},
			{
				Symbol:     "chunk_tags_tag_id",
				Columns:    []*schema.Column{ChunkTagsColumns[1]},
				RefColumns: []*schema.Column{TagsColumns[0]},
				OnDelete:   schema.Cascade,
			},
		},
	}

	VectorsColumns = []*schema.Column{
		{Name: "chunk_id", Type: field.TypeInt64},
		{Name: "embedding", Type: field.TypeJSON},
		{Name: "content_hash", Type: field.TypeString},
		{Name: "updated_at", Type: field.TypeTime},
	}
	VectorsTable = &schema.Table{
		Name:       VectorsTableName,
		Columns:    VectorsColumns,
		PrimaryKey: []*schema.Column{VectorsColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "chunk_vectors_chunk_id",
				Columns:    []*schema.Column{VectorsColumns[0]},
				RefColumns: []*schema.Column{ChunksColumns[0]},
				OnDelete:   schema.Cascade,
			},
		},
	}

	// Tables lists every table in creation order.
	Tables = []*schema.Table{
		CoursesTable,
		FilesTable,
		ChunksTable,
		TagsTable,
		ChunkTagsTable,
		VectorsTable,
	}
)

func init() {
	FilesTable.ForeignKeys[0].RefTable = CoursesTable
	ChunksTable.ForeignKeys[0].RefTable = FilesTable
	ChunkTagsTable.ForeignKeys[0].RefTable = ChunksTable
	ChunkTagsTable.ForeignKeys[1].RefTable = TagsTable
	VectorsTable.ForeignKeys[0].RefTable = ChunksTable
}
